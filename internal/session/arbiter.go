package session

import (
	"context"
	"sync/atomic"

	"github.com/stemsi/exstem-taker/internal/model"
)

// Arbiter is the one-shot latch every submission trigger has to pass.
// The first Acquire closes it; it only opens again after a failed submission.
type Arbiter struct {
	closed atomic.Bool
}

// Acquire closes the latch and reports whether this caller closed it.
func (a *Arbiter) Acquire() bool {
	return a.closed.CompareAndSwap(false, true)
}

// Reopen lets the next trigger through again.
func (a *Arbiter) Reopen() {
	a.closed.Store(false)
}

// attemptSubmitLocked is the single entry point for manual, timeout and
// backgrounding triggers. The latch is taken before the network call starts,
// which begins once the lock is released;
// a trigger that loses is dropped without a trace beyond a debug log.
// c.mu must be held.
func (c *Controller) attemptSubmitLocked(reason model.Reason) bool {
	s := c.session
	if s == nil {
		return false
	}

	log := c.log.With().
		Str("exam_id", s.ExamID).
		Str("instance_id", s.InstanceID).
		Str("reason", string(reason)).
		Logger()

	switch s.state {
	case model.SubmissionSubmitting, model.SubmissionSubmitted:
		log.Debug().Str("state", string(s.state)).Msg("Duplicate submission trigger dropped")
		return false
	case model.SubmissionFailed:
		// Only the user may retry a failed submission.
		if reason != model.ReasonManual {
			log.Debug().Msg("Automatic trigger ignored after failed submission")
			return false
		}
	}

	if !s.latch.Acquire() {
		log.Debug().Msg("Duplicate submission trigger dropped")
		return false
	}

	s.reason = reason
	s.state = model.SubmissionSubmitting
	s.err = nil
	s.countdown.Stop()

	req := model.SubmitRequest{
		ExamID:     s.ExamID,
		InstanceID: s.InstanceID,
		Answers:    s.ledger.Snapshot(),
		Reason:     reason,
	}

	log.Info().
		Int("answered", len(req.Answers)).
		Int("total", len(s.Questions)).
		Int("seconds_remaining", s.countdown.Remaining()).
		Msg("Submitting exam")

	c.emit(func(p Presenter) { p.Submitting(reason) })

	// Starts after the queued Submitting call.
	c.inflight.Add(1)
	c.pending = append(c.pending, func() { go c.submit(s, req) })
	return true
}

// submit performs the network call and applies its outcome. Leaving the view
// does not cancel the request; the outcome is then discarded.
func (c *Controller) submit(s *Session, req model.SubmitRequest) {
	defer c.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.SubmitTimeout)
	defer cancel()

	result, err := c.submitter.SubmitExam(ctx, req)
	if err == nil && (result == nil || !result.Success) {
		err = ErrSubmissionRejected
	}

	c.lock()
	defer c.unlock()

	log := c.log.With().
		Str("exam_id", req.ExamID).
		Str("instance_id", req.InstanceID).
		Str("reason", string(req.Reason)).
		Logger()

	if c.session != s {
		if err != nil {
			log.Warn().Err(err).Msg("Submission failed after the exam view was left")
		} else {
			log.Info().Msg("Submission completed after the exam view was left")
		}
		return
	}

	if err != nil {
		s.state = model.SubmissionFailed
		s.err = err
		s.latch.Reopen()
		view := s.failureView()
		log.Error().Err(err).Msg("Exam submission failed")
		c.emit(func(p Presenter) { p.Failed(view) })
		return
	}

	s.state = model.SubmissionSubmitted
	s.result = result
	view := s.resultView()
	log.Info().
		Int("correct", result.CorrectAnswers).
		Int("total", result.TotalQuestions).
		Msg("Exam submitted")
	c.emit(func(p Presenter) { p.Submitted(view) })
}
