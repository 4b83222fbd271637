package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/model"
)

var errNetwork = errors.New("connection reset by peer")

func makeQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:     fmt.Sprintf("q%d", i+1),
			Number: i + 1,
			Text:   fmt.Sprintf("Question %d", i+1),
			Options: []model.Option{
				{Label: "A", Text: "alpha"},
				{Label: "B", Text: "bravo"},
				{Label: "C", Text: "charlie"},
				{Label: "D", Text: "delta"},
			},
		}
	}
	return qs
}

type fakeSource struct {
	questions []model.Question
	err       error
	calls     int
}

func (f *fakeSource) GetExamQuestions(_ context.Context, _, _ string) ([]model.Question, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.questions, nil
}

// fakeSubmitter records every call. When gate is set each call blocks until
// a value is received from it. errs are returned in order, one per call.
type fakeSubmitter struct {
	mu    sync.Mutex
	calls []model.SubmitRequest
	errs  []error
	gate  chan struct{}
}

func (f *fakeSubmitter) SubmitExam(ctx context.Context, req model.SubmitRequest) (*model.SubmitResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &model.SubmitResult{
		Success:        true,
		CorrectAnswers: len(req.Answers),
		TotalQuestions: 5,
		Score:          float64(len(req.Answers)) * 20,
	}, nil
}

func (f *fakeSubmitter) Calls() []model.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.SubmitRequest(nil), f.calls...)
}

type recordingPresenter struct {
	mu         sync.Mutex
	ticks      []int
	lowTime    []int
	incomplete []*IncompleteAnswersError
	submitting []model.Reason
	submitted  []ResultView
	failed     []FailureView
}

func (p *recordingPresenter) Tick(remaining int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks = append(p.ticks, remaining)
}

func (p *recordingPresenter) LowTime(remaining int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lowTime = append(p.lowTime, remaining)
}

func (p *recordingPresenter) Incomplete(err *IncompleteAnswersError) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.incomplete = append(p.incomplete, err)
}

func (p *recordingPresenter) Submitting(reason model.Reason) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitting = append(p.submitting, reason)
}

func (p *recordingPresenter) Submitted(view ResultView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = append(p.submitted, view)
}

func (p *recordingPresenter) Failed(view FailureView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, view)
}

func (p *recordingPresenter) submittingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.submitting)
}

type recordingSink struct {
	mu    sync.Mutex
	saved [][2]string
}

func (s *recordingSink) SaveAnswer(questionID, option string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, [2]string{questionID, option})
}

// manualClock hands out a single ticker whose ticks the test sends.
type manualClock struct {
	ticks chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{ticks: make(chan time.Time)}
}

func (m *manualClock) NewTicker(time.Duration) Ticker { return m }
func (m *manualClock) C() <-chan time.Time            { return m.ticks }
func (m *manualClock) Stop()                          {}

type harness struct {
	ctrl      *Controller
	source    *fakeSource
	submitter *fakeSubmitter
	presenter *recordingPresenter
}

func newHarness(questions, duration int) *harness {
	h := &harness{
		source:    &fakeSource{questions: makeQuestions(questions)},
		submitter: &fakeSubmitter{},
		presenter: &recordingPresenter{},
	}
	h.ctrl = NewController(h.source, h.submitter, zerolog.Nop(), Options{
		DurationSeconds:  duration,
		LowTimeThreshold: 600,
		SubmitTimeout:    5 * time.Second,
		Presenter:        h.presenter,
	})
	return h
}

func (h *harness) answerAll(n int) error {
	for i := 1; i <= n; i++ {
		if err := h.ctrl.SetAnswer(fmt.Sprintf("q%d", i), "A"); err != nil {
			return err
		}
	}
	return nil
}
