package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/middleware"
	"github.com/stemsi/exstem-taker/internal/model"
	"github.com/stemsi/exstem-taker/internal/repository"
	"github.com/stemsi/exstem-taker/internal/response"
	"github.com/stemsi/exstem-taker/internal/service"
	"github.com/stemsi/exstem-taker/internal/validator"
)

// ExamHandler handles the student-facing exam endpoints.
type ExamHandler struct {
	examService       *service.ExamService
	submissionService *service.SubmissionService
	log               zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, submissionService *service.SubmissionService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService:       examService,
		submissionService: submissionService,
		log:               log.With().Str("component", "exam_handler").Logger(),
	}
}

// GetQuestions godoc
// GET /api/v1/student/exams/:exam_id/instances/:instance_id/questions
// Returns the exam paper of an instance. Idempotent.
func (h *ExamHandler) GetQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, instanceID, ok := parseExamPath(c)
	if !ok {
		return
	}

	paper, err := h.examService.GetPaper(c.Request.Context(), examID, instanceID)
	if err != nil {
		if errors.Is(err, repository.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
			return
		}
		h.log.Error().Err(err).Str("exam_id", examID).Msg("Get exam paper failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// SubmitExam godoc
// POST /api/v1/student/exams/:exam_id/instances/:instance_id/submit
// Grades the submitted answers. A second submission of the same instance
// is rejected with ALREADY_SUBMITTED.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, instanceID, ok := parseExamPath(c)
	if !ok {
		return
	}

	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		if _, bad := fields["reason"]; bad {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidReason, fields)
			return
		}
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.submissionService.Submit(c.Request.Context(), claims.UserID, examID, instanceID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadySubmitted):
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		case errors.Is(err, service.ErrInvalidReason):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidReason)
		case errors.Is(err, repository.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		default:
			h.log.Error().Err(err).
				Int("student_id", claims.UserID).
				Str("exam_id", examID).
				Str("instance_id", instanceID).
				Msg("Submission failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}

// parseExamPath reads and validates the exam and instance IDs of the route.
// On failure it has already written the error response.
func parseExamPath(c *gin.Context) (examID, instanceID string, ok bool) {
	eID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return "", "", false
	}
	iID, err := uuid.Parse(c.Param("instance_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return "", "", false
	}
	return eID.String(), iID.String(), true
}
