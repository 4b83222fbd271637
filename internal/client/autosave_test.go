package client

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ session.AnswerSink = (*Autosaver)(nil)

func TestAutosaver_SavesAnswers(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	a, err := DialAutosaver(ctx, b.cfg.WSURL(), b.token, mathExamID, instanceID, zerolog.Nop())
	require.NoError(t, err)

	a.SaveAnswer("mat-1", "A")
	a.SaveAnswer("mat-1", "B")
	a.SaveAnswer("mat-3", "C")
	a.SaveAnswer("unknown", "C")

	require.Eventually(t, func() bool { return a.Saved() == 3 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, a.Close())

	saved, err := b.answers.Answers(ctx, mathExamID, instanceID, 11)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"mat-1": "B", "mat-3": "C"}, saved)
}

func TestAutosaver_SaveAfterCloseIsNoop(t *testing.T) {
	b := newBackend(t)

	a, err := DialAutosaver(context.Background(), b.cfg.WSURL(), b.token, mathExamID, instanceID, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.NotPanics(t, func() { a.SaveAnswer("mat-1", "A") })
	assert.Equal(t, int64(0), a.Saved())
}

func TestAutosaver_DialRejected(t *testing.T) {
	b := newBackend(t)

	_, err := DialAutosaver(context.Background(), b.cfg.WSURL(), "garbage", mathExamID, instanceID, zerolog.Nop())
	assert.Error(t, err)
}
