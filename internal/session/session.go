package session

import (
	"context"

	"github.com/stemsi/exstem-taker/internal/model"
)

// QuestionSource fetches the question set of an exam instance. It must be
// idempotent and free of side effects.
type QuestionSource interface {
	GetExamQuestions(ctx context.Context, examID, instanceID string) ([]model.Question, error)
}

// Submitter sends a finished exam to the backend. It is not idempotent on the
// server, which is why the Controller never calls it twice for one attempt.
type Submitter interface {
	SubmitExam(ctx context.Context, req model.SubmitRequest) (*model.SubmitResult, error)
}

// AnswerSink receives every recorded answer. Implementations must not block.
type AnswerSink interface {
	SaveAnswer(questionID, option string)
}

// Presenter is the UI collaborator. Methods are called after the Controller
// has released its lock, possibly from the submission goroutine, so
// implementations must be safe for concurrent use.
type Presenter interface {
	Tick(remaining int)
	LowTime(remaining int)
	Incomplete(err *IncompleteAnswersError)
	Submitting(reason model.Reason)
	Submitted(view ResultView)
	Failed(view FailureView)
}

// ResultView is what the result screen shows after a successful submission.
type ResultView struct {
	Reason         model.Reason `json:"reason"`
	CorrectAnswers int          `json:"correct_answers"`
	TotalQuestions int          `json:"total_questions"`
	Score          float64      `json:"score"`
}

// FailureView is what the error dialog shows after a failed submission.
type FailureView struct {
	Err      error        `json:"-"`
	Reason   model.Reason `json:"reason"`
	CanRetry bool         `json:"can_retry"`
}

// View is a point-in-time copy of the session for display.
type View struct {
	ExamID           string                `json:"exam_id"`
	InstanceID       string                `json:"instance_id"`
	State            model.SubmissionState `json:"state"`
	Reason           model.Reason          `json:"reason,omitempty"`
	SecondsRemaining int                   `json:"seconds_remaining"`
	Answered         int                   `json:"answered"`
	Total            int                   `json:"total"`
	Answers          map[string]string     `json:"answers"`
	Result           *ResultView           `json:"result,omitempty"`
	Failure          *FailureView          `json:"failure,omitempty"`
}

// Session is one attempt at one exam instance. All fields are guarded by the
// owning Controller's mutex.
type Session struct {
	ExamID     string
	InstanceID string
	Questions  []model.Question

	index     map[string]int
	ledger    *Ledger
	countdown *Countdown
	latch     Arbiter

	state  model.SubmissionState
	reason model.Reason
	result *model.SubmitResult
	err    error
}

func newSession(examID, instanceID string, questions []model.Question, duration, threshold int) *Session {
	index := make(map[string]int, len(questions))
	for i, q := range questions {
		index[q.ID] = i
	}
	return &Session{
		ExamID:     examID,
		InstanceID: instanceID,
		Questions:  questions,
		index:      index,
		ledger:     NewLedger(),
		countdown:  NewCountdown(duration, threshold),
		state:      model.SubmissionNotSubmitted,
	}
}

func (s *Session) view() View {
	v := View{
		ExamID:           s.ExamID,
		InstanceID:       s.InstanceID,
		State:            s.state,
		Reason:           s.reason,
		SecondsRemaining: s.countdown.Remaining(),
		Answered:         s.ledger.AnsweredCount(),
		Total:            len(s.Questions),
		Answers:          s.ledger.Snapshot(),
	}
	switch s.state {
	case model.SubmissionSubmitted:
		r := s.resultView()
		v.Result = &r
	case model.SubmissionFailed:
		f := s.failureView()
		v.Failure = &f
	}
	return v
}

func (s *Session) resultView() ResultView {
	return ResultView{
		Reason:         s.reason,
		CorrectAnswers: s.result.CorrectAnswers,
		TotalQuestions: s.result.TotalQuestions,
		Score:          s.result.Score,
	}
}

func (s *Session) failureView() FailureView {
	return FailureView{Err: s.err, Reason: s.reason, CanRetry: true}
}

func (s *Session) incomplete(idx int) *IncompleteAnswersError {
	q := s.Questions[idx]
	return &IncompleteAnswersError{
		Index:      idx,
		QuestionID: q.ID,
		Number:     q.Number,
		Answered:   s.ledger.AnsweredCount(),
		Total:      len(s.Questions),
	}
}
