package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/middleware"
	"github.com/stemsi/exstem-taker/internal/repository"
	"github.com/stemsi/exstem-taker/internal/response"
	"github.com/stemsi/exstem-taker/internal/service"
	ws "github.com/stemsi/exstem-taker/internal/websocket"
)

const (
	maxAnswerLength = 10
	autosaveTimeout = 3 * time.Second
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the per-instance answer autosave stream.
type WSHandler struct {
	examService *service.ExamService
	answers     service.AnswerStore
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(examService *service.ExamService, answers service.AnswerStore, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		examService: examService,
		answers:     answers,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/student/exams/:exam_id/instances/:instance_id/stream
// Upgrades to WebSocket for answer autosave.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, instanceID, ok := parseExamPath(c)
	if !ok {
		return
	}

	// Reject unknown exams before upgrading so the client sees a plain HTTP error.
	if _, err := h.examService.GetExam(c.Request.Context(), examID); err != nil {
		if errors.Is(err, repository.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	s := &streamSession{
		h:          h,
		conn:       conn,
		studentID:  claims.UserID,
		examID:     examID,
		instanceID: instanceID,
		log: h.log.With().
			Int("student_id", claims.UserID).
			Str("exam_id", examID).
			Str("instance_id", instanceID).
			Logger(),
	}
	s.serve()
}

type streamSession struct {
	h          *WSHandler
	conn       *websocket.Conn
	studentID  int
	examID     string
	instanceID string
	log        zerolog.Logger
}

func (s *streamSession) serve() {
	s.log.Info().Msg("Student connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(s.conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				s.log.Debug().Msg("Connection closed")
			}
			return
		}

		var err error
		switch msg.Action {
		case ws.ActionAutosave:
			err = s.autosave(&msg)
		case ws.ActionPing:
			err = ws.WriteEvent(s.conn, ws.EventPong, "", "")
		default:
			s.log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			err = ws.WriteError(s.conn, "unknown action: "+string(msg.Action))
		}
		if err != nil {
			s.log.Debug().Err(err).Msg("Write failed, closing stream")
			return
		}
	}
}

// autosave validates and stores a single answer.
func (s *streamSession) autosave(msg *ws.RequestPayload) error {
	if msg.QID == "" || msg.Answer == "" {
		return ws.WriteError(s.conn, "q_id and ans are required")
	}
	if len(msg.Answer) > maxAnswerLength {
		return ws.WriteError(s.conn, "ans is too long")
	}

	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()

	known, err := s.h.examService.HasQuestion(ctx, s.examID, msg.QID)
	if err != nil {
		s.log.Error().Err(err).Msg("Question lookup failed")
		return ws.WriteError(s.conn, "save failed")
	}
	if !known {
		return ws.WriteTyped(s.conn, ws.ResponsePayload{Event: ws.EventError, QID: msg.QID, Error: "unknown q_id"})
	}

	if err := s.h.answers.SaveAnswer(ctx, s.examID, s.instanceID, s.studentID, msg.QID, msg.Answer); err != nil {
		s.log.Error().Err(err).Msg("Autosave store error")
		return ws.WriteTyped(s.conn, ws.ResponsePayload{Event: ws.EventError, QID: msg.QID, Error: "save failed"})
	}

	return ws.WriteEvent(s.conn, ws.EventSuccess, "saved", msg.QID)
}
