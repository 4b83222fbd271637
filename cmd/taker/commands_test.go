package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stemsi/exstem-taker/internal/client"
	"github.com/stemsi/exstem-taker/internal/model"
	"github.com/stemsi/exstem-taker/internal/response"
	"github.com/stemsi/exstem-taker/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    command
		wantErr bool
	}{
		{line: "answer 3 b", want: command{kind: cmdAnswer, question: "3", option: "B"}},
		{line: "  a mat-1 C ", want: command{kind: cmdAnswer, question: "mat-1", option: "C"}},
		{line: "submit", want: command{kind: cmdSubmit}},
		{line: "STATUS", want: command{kind: cmdStatus}},
		{line: "bg", want: command{kind: cmdHost, host: model.HostBackground}},
		{line: "inactive", want: command{kind: cmdHost, host: model.HostInactive}},
		{line: "foreground", want: command{kind: cmdHost, host: model.HostActive}},
		{line: "quit", want: command{kind: cmdQuit}},
		{line: "answer 3", wantErr: true},
		{line: "", wantErr: true},
		{line: "dance", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveQuestion(t *testing.T) {
	questions := []model.Question{
		{ID: "mat-1", Number: 1},
		{ID: "mat-2", Number: 2},
		{ID: "7", Number: 3},
	}

	q, ok := resolveQuestion("mat-2", questions)
	require.True(t, ok)
	assert.Equal(t, 2, q.Number)

	q, ok = resolveQuestion("1", questions)
	require.True(t, ok)
	assert.Equal(t, "mat-1", q.ID)

	// An id match wins over a number match.
	q, ok = resolveQuestion("7", questions)
	require.True(t, ok)
	assert.Equal(t, 3, q.Number)

	_, ok = resolveQuestion("9", questions)
	assert.False(t, ok)
}

func TestScreenSubmittedDeliversOnce(t *testing.T) {
	var buf bytes.Buffer
	scr := newScreen(&buf, false)

	view := session.ResultView{Reason: model.ReasonManual, CorrectAnswers: 4, TotalQuestions: 5, Score: 80}
	scr.Submitted(view)
	scr.Submitted(view)

	assert.Equal(t, view, <-scr.Done())
	assert.Contains(t, buf.String(), "Correct: 4 of 5")
	assert.Contains(t, buf.String(), "80.00")
}

func TestScreenFailedShowsBackendMessage(t *testing.T) {
	var buf bytes.Buffer
	scr := newScreen(&buf, false)

	err := &client.APIError{Status: 503, Code: response.ErrInternal, Message: "server sibuk"}
	scr.Failed(session.FailureView{Err: err, Reason: model.ReasonManual, CanRetry: true})
	assert.Contains(t, buf.String(), "server sibuk")
	assert.Contains(t, buf.String(), "Type 'submit' to try again")

	buf.Reset()
	scr.Failed(session.FailureView{Err: errors.New("connection refused"), CanRetry: true})
	assert.Contains(t, buf.String(), "connection refused")

	select {
	case <-scr.Failures():
	default:
		t.Fatal("failure was not signalled")
	}
}

func TestScreenFailedAlreadySubmitted(t *testing.T) {
	var buf bytes.Buffer
	scr := newScreen(&buf, false)

	err := fmt.Errorf("submit exam: %w", &client.APIError{Status: 409, Code: response.ErrAlreadySubmitted, Message: "sudah dikumpulkan"})
	scr.Failed(session.FailureView{Err: err, Reason: model.ReasonTimeExpired, CanRetry: true})

	assert.Contains(t, buf.String(), "already holds a submission")
	assert.NotContains(t, buf.String(), "try again")
}

func TestCanContinue(t *testing.T) {
	retryable := &session.FailureView{Err: errors.New("timeout"), CanRetry: true}
	recorded := &session.FailureView{
		Err:      &client.APIError{Status: 409, Code: response.ErrAlreadySubmitted},
		CanRetry: true,
	}

	tests := []struct {
		name      string
		view      session.View
		haveInput bool
		want      bool
	}{
		{name: "running without input", view: session.View{State: model.SubmissionNotSubmitted}, want: true},
		{name: "submitting without input", view: session.View{State: model.SubmissionSubmitting}, want: true},
		{name: "submitted", view: session.View{State: model.SubmissionSubmitted}, haveInput: true, want: false},
		{name: "failed with input", view: session.View{State: model.SubmissionFailed, Failure: retryable}, haveInput: true, want: true},
		{name: "failed without input", view: session.View{State: model.SubmissionFailed, Failure: retryable}, want: false},
		{name: "already recorded", view: session.View{State: model.SubmissionFailed, Failure: recorded}, haveInput: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canContinue(tt.view, tt.haveInput))
		})
	}
}

func TestScreenTickOutsideTerminal(t *testing.T) {
	var buf bytes.Buffer
	scr := newScreen(&buf, false)

	scr.Tick(61)
	assert.Empty(t, buf.String())
	scr.Tick(60)
	assert.Contains(t, buf.String(), "01:00")
}

func TestClock(t *testing.T) {
	assert.Equal(t, "60:00", clock(3600))
	assert.Equal(t, "00:09", clock(9))
	assert.Equal(t, "00:00", clock(-3))
}
