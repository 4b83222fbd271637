package main

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/stemsi/exstem-taker/internal/client"
	"github.com/stemsi/exstem-taker/internal/model"
	"github.com/stemsi/exstem-taker/internal/session"
)

// screen renders controller events as plain text lines.
type screen struct {
	mu  sync.Mutex
	out io.Writer
	// tty redraws the clock in place; otherwise it is printed once a minute.
	tty bool

	finished chan session.ResultView
	failures chan struct{}
	once     sync.Once
}

func newScreen(out io.Writer, tty bool) *screen {
	return &screen{
		out:      out,
		tty:      tty,
		finished: make(chan session.ResultView, 1),
		failures: make(chan struct{}, 1),
	}
}

func (s *screen) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tty {
		// Clear the clock line first.
		fmt.Fprint(s.out, "\r\033[K")
	}
	fmt.Fprintf(s.out, format, args...)
}

func (s *screen) Tick(remaining int) {
	if s.tty {
		s.mu.Lock()
		fmt.Fprintf(s.out, "\r\033[K[%s] > ", clock(remaining))
		s.mu.Unlock()
		return
	}
	if remaining%60 == 0 {
		s.printf("Time remaining: %s\n", clock(remaining))
	}
}

func (s *screen) LowTime(remaining int) {
	s.printf("!! Only %s left. Unanswered questions will be submitted as they are.\n", clock(remaining))
}

func (s *screen) Incomplete(err *session.IncompleteAnswersError) {
	s.printf("Question %d is not answered yet (%d of %d answered).\n", err.Number, err.Answered, err.Total)
}

func (s *screen) Submitting(reason model.Reason) {
	switch reason {
	case model.ReasonTimeExpired:
		s.printf("Time is up. Submitting your answers...\n")
	case model.ReasonTabSwitch:
		s.printf("You left the exam. Submitting your answers...\n")
	default:
		s.printf("Submitting your answers...\n")
	}
}

func (s *screen) Submitted(view session.ResultView) {
	s.printf("Exam submitted (%s).\nCorrect: %d of %d\nScore:   %.2f\n",
		view.Reason, view.CorrectAnswers, view.TotalQuestions, view.Score)
	s.once.Do(func() { s.finished <- view })
}

func (s *screen) Failed(view session.FailureView) {
	defer s.notifyFailure()

	if alreadySubmitted(view.Err) {
		s.printf("The backend already holds a submission for this exam. An earlier attempt went through, there is nothing left to submit.\n")
		return
	}

	msg := "submission failed"
	var apiErr *client.APIError
	switch {
	case errors.As(view.Err, &apiErr) && apiErr.Message != "":
		msg = apiErr.Message
	case view.Err != nil:
		msg = view.Err.Error()
	}
	s.printf("Could not submit: %s\n", msg)
	if view.CanRetry {
		s.printf("Type 'submit' to try again.\n")
	}
}

func (s *screen) notifyFailure() {
	select {
	case s.failures <- struct{}{}:
	default:
	}
}

// Failures signals after each failed submission.
func (s *screen) Failures() <-chan struct{} {
	return s.failures
}

// Done delivers the result of the first successful submission.
func (s *screen) Done() <-chan session.ResultView {
	return s.finished
}

func (s *screen) showQuestions(title string, questions []model.Question, answers map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title != "" {
		fmt.Fprintf(s.out, "\n=== %s ===\n", title)
	}
	for _, q := range questions {
		mark := " "
		if _, ok := answers[q.ID]; ok {
			mark = "*"
		}
		fmt.Fprintf(s.out, "\n%s%d. [%s] %s\n", mark, q.Number, q.ID, q.Text)
		for _, o := range q.Options {
			sel := " "
			if answers[q.ID] == o.Label {
				sel = ">"
			}
			fmt.Fprintf(s.out, "   %s %s) %s\n", sel, o.Label, o.Text)
		}
	}
	fmt.Fprintln(s.out)
}

func (s *screen) showStatus(v session.View) {
	s.printf("State: %s  Answered: %d/%d  Remaining: %s\n",
		v.State, v.Answered, v.Total, clock(v.SecondsRemaining))
}

func clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
