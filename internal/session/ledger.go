package session

import "github.com/stemsi/exstem-taker/internal/model"

// Ledger records the user's current choice per question.
// It is not safe for concurrent use; the Controller serializes access.
type Ledger struct {
	answers map[string]string
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{answers: make(map[string]string)}
}

// Set replaces any prior selection for the question.
func (l *Ledger) Set(questionID, option string) {
	l.answers[questionID] = option
}

// Get returns the selected option for the question, if any.
func (l *Ledger) Get(questionID string) (string, bool) {
	opt, ok := l.answers[questionID]
	return opt, ok
}

// AnsweredCount returns the number of distinct questions with a recorded answer.
func (l *Ledger) AnsweredCount() int {
	return len(l.answers)
}

// Snapshot returns an independent copy of the answers.
func (l *Ledger) Snapshot() map[string]string {
	out := make(map[string]string, len(l.answers))
	for q, opt := range l.answers {
		out[q] = opt
	}
	return out
}

// Reset clears every recorded answer.
func (l *Ledger) Reset() {
	clear(l.answers)
}

// FirstUnanswered returns the position of the first question in questions
// without a recorded answer, or -1 when every question is answered.
func (l *Ledger) FirstUnanswered(questions []model.Question) int {
	for i, q := range questions {
		if _, ok := l.answers[q.ID]; !ok {
			return i
		}
	}
	return -1
}
