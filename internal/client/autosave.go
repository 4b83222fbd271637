package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	ws "github.com/stemsi/exstem-taker/internal/websocket"
)

const autosaveQueueSize = 64

// Autosaver streams answers to the backend as they are picked. It is best
// effort: the exam result only ever depends on the final submission, so a
// dropped or failed autosave is logged and otherwise ignored.
type Autosaver struct {
	conn  *websocket.Conn
	queue chan ws.RequestPayload
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
	saved atomic.Int64
	log   zerolog.Logger
}

// DialAutosaver opens the autosave stream of an exam instance.
// wsBaseURL is the backend root with a ws:// or wss:// scheme.
func DialAutosaver(ctx context.Context, wsBaseURL, token, examID, instanceID string, log zerolog.Logger) (*Autosaver, error) {
	u := fmt.Sprintf("%s/ws/v1/student/exams/%s/instances/%s/stream?token=%s",
		wsBaseURL, url.PathEscape(examID), url.PathEscape(instanceID), url.QueryEscape(token))

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial autosave stream: %w", err)
	}

	a := &Autosaver{
		conn:  conn,
		queue: make(chan ws.RequestPayload, autosaveQueueSize),
		done:  make(chan struct{}),
		log: log.With().
			Str("component", "autosave").
			Str("exam_id", examID).
			Str("instance_id", instanceID).
			Logger(),
	}

	a.wg.Add(2)
	go a.writeLoop()
	go a.readLoop()

	a.log.Debug().Msg("Autosave stream connected")
	return a, nil
}

// SaveAnswer queues an answer for the backend without blocking.
func (a *Autosaver) SaveAnswer(questionID, option string) {
	msg := ws.RequestPayload{Action: ws.ActionAutosave, QID: questionID, Answer: option}
	select {
	case <-a.done:
		return
	default:
	}
	select {
	case a.queue <- msg:
	default:
		a.log.Warn().Str("q_id", questionID).Msg("Autosave queue full, answer kept locally only")
	}
}

// Saved returns how many answers the backend acknowledged.
func (a *Autosaver) Saved() int64 {
	return a.saved.Load()
}

// Close stops the stream. Answers still queued are dropped.
func (a *Autosaver) Close() error {
	a.shutdown()
	_ = a.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := a.conn.Close()
	a.wg.Wait()
	return err
}

func (a *Autosaver) shutdown() {
	a.once.Do(func() { close(a.done) })
}

func (a *Autosaver) writeLoop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.done:
			return
		case msg := <-a.queue:
			if err := ws.WriteTyped(a.conn, msg); err != nil {
				a.log.Warn().Err(err).Msg("Autosave write failed, stream stopped")
				a.shutdown()
				return
			}
		}
	}
}

func (a *Autosaver) readLoop() {
	defer a.wg.Done()
	for {
		var resp ws.ResponsePayload
		if err := ws.ReadJSON(a.conn, &resp); err != nil {
			select {
			case <-a.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					a.log.Warn().Err(err).Msg("Autosave stream closed unexpectedly")
				}
			}
			a.shutdown()
			return
		}

		switch resp.Event {
		case ws.EventSuccess:
			a.saved.Add(1)
		case ws.EventError:
			a.log.Warn().Str("q_id", resp.QID).Str("error", resp.Error).Msg("Autosave rejected")
		}
	}
}
