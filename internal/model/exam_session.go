package model

// SubmissionState enumerates the states of a timed exam session.
type SubmissionState string

const (
	SubmissionNotSubmitted SubmissionState = "NOT_SUBMITTED"
	SubmissionSubmitting   SubmissionState = "SUBMITTING"
	SubmissionSubmitted    SubmissionState = "SUBMITTED"
	SubmissionFailed       SubmissionState = "FAILED"
)

// Reason records which trigger finalized the exam.
type Reason string

const (
	ReasonManual      Reason = "manual"
	ReasonTimeExpired Reason = "time_expired"
	ReasonTabSwitch   Reason = "tab_switch"
)

// Valid reports whether r is one of the known trigger reasons.
func (r Reason) Valid() bool {
	switch r {
	case ReasonManual, ReasonTimeExpired, ReasonTabSwitch:
		return true
	}
	return false
}

// HostState is the foreground/background signal reported by the host environment.
// Values other than the constants below are opaque and treated as non-active.
type HostState string

const (
	HostActive     HostState = "active"
	HostInactive   HostState = "inactive"
	HostBackground HostState = "background"
)
