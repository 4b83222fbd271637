package session

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	ErrNoSession          = errors.New("no active exam session")
	ErrSessionClosed      = errors.New("exam session no longer accepts answers")
	ErrUnknownQuestion    = errors.New("question is not part of this exam")
	ErrNoQuestions        = errors.New("exam has no questions")
	ErrSubmissionRejected = errors.New("submission was not accepted by the backend")
)

// LoadError means the question set could not be fetched, so no session started.
// It is not retried; the user has to leave and re-enter the exam view.
type LoadError struct {
	ExamID     string
	InstanceID string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load exam %s/%s: %v", e.ExamID, e.InstanceID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IncompleteAnswersError rejects a manual submit while questions are unanswered.
// Index is the position of the first unanswered question so the UI can focus it.
type IncompleteAnswersError struct {
	Index      int
	QuestionID string
	Number     int
	Answered   int
	Total      int
}

func (e *IncompleteAnswersError) Error() string {
	return fmt.Sprintf("question %d is unanswered (%d of %d answered)", e.Number, e.Answered, e.Total)
}
