package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/config"
	"github.com/stemsi/exstem-taker/internal/model"
)

// Options tunes a Controller. Zero values fall back to the defaults.
type Options struct {
	DurationSeconds  int
	LowTimeThreshold int
	SubmitTimeout    time.Duration
	Clock            Clock
	Presenter        Presenter
	AnswerSink       AnswerSink
}

func (o Options) withDefaults() Options {
	if o.DurationSeconds <= 0 {
		o.DurationSeconds = config.DefaultExamDurationSeconds
	}
	if o.LowTimeThreshold <= 0 {
		o.LowTimeThreshold = config.DefaultLowTimeThreshold
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = 30 * time.Second
	}
	if o.Clock == nil {
		o.Clock = WallClock()
	}
	return o
}

// Controller runs the exam-taking view: it owns the active Session and
// serializes every trigger (tick, host transition, user action) through one
// mutex, which plays the role of the view's event queue.
type Controller struct {
	source    QuestionSource
	submitter Submitter
	opts      Options
	log       zerolog.Logger

	mu      sync.Mutex
	session *Session
	monitor *LifecycleMonitor
	stopRun context.CancelFunc
	pending []func()

	inflight sync.WaitGroup
}

// NewController creates a Controller. No session is active until Enter.
func NewController(source QuestionSource, submitter Submitter, log zerolog.Logger, opts Options) *Controller {
	return &Controller{
		source:    source,
		submitter: submitter,
		opts:      opts.withDefaults(),
		log:       log.With().Str("component", "exam_session").Logger(),
		monitor:   NewLifecycleMonitor(),
	}
}

// Enter fetches the question set and starts a fresh session, discarding any
// session already held. Answers never carry over from a previous entry.
func (c *Controller) Enter(ctx context.Context, examID, instanceID string) error {
	questions, err := c.source.GetExamQuestions(ctx, examID, instanceID)
	if err == nil && len(questions) == 0 {
		err = ErrNoQuestions
	}
	if err != nil {
		c.log.Error().Err(err).
			Str("exam_id", examID).
			Str("instance_id", instanceID).
			Msg("Failed to load exam questions")
		return &LoadError{ExamID: examID, InstanceID: instanceID, Err: err}
	}

	c.lock()
	defer c.unlock()

	c.stopRunLocked()
	c.session = newSession(examID, instanceID, questions, c.opts.DurationSeconds, c.opts.LowTimeThreshold)
	c.monitor.Reset()

	c.log.Info().
		Str("exam_id", examID).
		Str("instance_id", instanceID).
		Int("questions", len(questions)).
		Int("duration_seconds", c.session.countdown.Remaining()).
		Msg("Exam session started")
	return nil
}

// Exit discards the session and stops the run loop. An in-flight submission
// keeps running; its outcome is only logged.
func (c *Controller) Exit() {
	c.lock()
	defer c.unlock()

	c.stopRunLocked()
	if c.session != nil {
		c.log.Info().
			Str("exam_id", c.session.ExamID).
			Str("state", string(c.session.state)).
			Msg("Exam session left")
		c.session.ledger.Reset()
	}
	c.session = nil
}

// Run drives the active session from the wall clock and the host's
// foreground/background stream. It returns when ctx is done, when the view
// is exited or re-entered, or once a submission has started: from then on
// neither the timer nor the host can trigger anything. Leaving Run is what
// unsubscribes from hostEvents.
func (c *Controller) Run(ctx context.Context, hostEvents <-chan model.HostState) error {
	c.lock()
	s := c.session
	if s == nil {
		c.unlock()
		return ErrNoSession
	}
	c.stopRunLocked()
	runCtx, cancel := context.WithCancel(ctx)
	c.stopRun = cancel
	c.unlock()
	defer cancel()

	ticker := c.opts.Clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			return ctx.Err()
		case <-ticker.C():
			if !c.tickSession(s) {
				return nil
			}
		case state, ok := <-hostEvents:
			if !ok {
				hostEvents = nil
				continue
			}
			if !c.hostStateSession(s, state) {
				return nil
			}
		}
	}
}

// Tick advances the active session's countdown by one second. The tick that
// reaches zero submits with reason time_expired before returning.
func (c *Controller) Tick() {
	c.lock()
	defer c.unlock()
	c.tickLocked()
}

// HostStateChanged feeds one host foreground/background notification.
// Leaving the app from the foreground submits with reason tab_switch.
func (c *Controller) HostStateChanged(state model.HostState) {
	c.lock()
	defer c.unlock()
	c.hostStateLocked(state)
}

// SetAnswer records the user's choice for a question.
func (c *Controller) SetAnswer(questionID, option string) error {
	c.lock()
	defer c.unlock()

	s := c.session
	if s == nil {
		return ErrNoSession
	}
	if s.state != model.SubmissionNotSubmitted {
		return ErrSessionClosed
	}
	if _, ok := s.index[questionID]; !ok {
		return ErrUnknownQuestion
	}

	s.ledger.Set(questionID, option)

	if sink := c.opts.AnswerSink; sink != nil {
		c.pending = append(c.pending, func() { sink.SaveAnswer(questionID, option) })
	}
	return nil
}

// Submit is the manual submit button. From a fresh session it first requires
// every question to be answered and returns *IncompleteAnswersError otherwise.
// Retrying a failed submission skips that check and resends the answers as
// they are. The bool reports whether a submission was started.
func (c *Controller) Submit() (bool, error) {
	c.lock()
	defer c.unlock()

	s := c.session
	if s == nil {
		return false, ErrNoSession
	}

	if s.state == model.SubmissionNotSubmitted {
		if idx := s.ledger.FirstUnanswered(s.Questions); idx >= 0 {
			incomplete := s.incomplete(idx)
			c.log.Debug().
				Str("question_id", incomplete.QuestionID).
				Int("index", incomplete.Index).
				Msg("Manual submit rejected, unanswered question")
			c.emit(func(p Presenter) { p.Incomplete(incomplete) })
			return false, incomplete
		}
	}

	return c.attemptSubmitLocked(model.ReasonManual), nil
}

// View returns a copy of the active session state.
func (c *Controller) View() (View, error) {
	c.lock()
	defer c.unlock()

	if c.session == nil {
		return View{}, ErrNoSession
	}
	return c.session.view(), nil
}

// Questions returns the active session's question set.
func (c *Controller) Questions() ([]model.Question, error) {
	c.lock()
	defer c.unlock()

	if c.session == nil {
		return nil, ErrNoSession
	}
	return c.session.Questions, nil
}

// Wait blocks until every started submission has finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) tickSession(s *Session) bool {
	c.lock()
	defer c.unlock()
	if c.session != s {
		return false
	}
	c.tickLocked()
	return s.state == model.SubmissionNotSubmitted
}

func (c *Controller) hostStateSession(s *Session, state model.HostState) bool {
	c.lock()
	defer c.unlock()
	if c.session != s {
		return false
	}
	c.hostStateLocked(state)
	return s.state == model.SubmissionNotSubmitted
}

func (c *Controller) tickLocked() {
	s := c.session
	if s == nil || s.state != model.SubmissionNotSubmitted {
		return
	}

	res := s.countdown.Tick()
	c.emit(func(p Presenter) { p.Tick(res.Remaining) })

	if res.LowTime {
		c.log.Info().Int("seconds_remaining", res.Remaining).Msg("Low time warning")
		c.emit(func(p Presenter) { p.LowTime(res.Remaining) })
	}
	if res.Expired {
		c.attemptSubmitLocked(model.ReasonTimeExpired)
	}
}

func (c *Controller) hostStateLocked(state model.HostState) {
	if c.session == nil {
		return
	}
	if c.monitor.Observe(state) {
		c.log.Warn().Str("exam_id", c.session.ExamID).Msg("App left during exam")
		c.attemptSubmitLocked(model.ReasonTabSwitch)
	}
}

func (c *Controller) stopRunLocked() {
	if c.stopRun != nil {
		c.stopRun()
		c.stopRun = nil
	}
}

// lock and unlock bracket every state change. Presenter calls queued with emit
// run after the mutex is released.
func (c *Controller) lock() {
	c.mu.Lock()
}

func (c *Controller) unlock() {
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

func (c *Controller) emit(fn func(Presenter)) {
	p := c.opts.Presenter
	if p == nil {
		return
	}
	c.pending = append(c.pending, func() { fn(p) })
}

// IsLoadError reports whether err came from a failed question fetch.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
