package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/model"
	"github.com/stemsi/exstem-taker/internal/response"
)

// Client talks to the exam backend REST API on behalf of one student.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a Client. baseURL is the backend root, e.g. http://localhost:8080.
func New(baseURL, token string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "backend_client").Logger(),
	}
}

// envelope mirrors response.Response with the data left undecoded.
type envelope struct {
	Data     json.RawMessage     `json:"data"`
	Error    *response.ErrorBody `json:"error,omitempty"`
	Metadata response.Metadata   `json:"metadata"`
}

// GetExamPaper fetches the student-facing exam paper of an instance.
func (c *Client) GetExamPaper(ctx context.Context, examID, instanceID string) (*model.ExamPaper, error) {
	var paper model.ExamPaper
	if err := c.do(ctx, http.MethodGet, examPath(examID, instanceID, "questions"), nil, &paper); err != nil {
		return nil, fmt.Errorf("get exam questions: %w", err)
	}
	return &paper, nil
}

// GetExamQuestions fetches the question set of an exam instance.
func (c *Client) GetExamQuestions(ctx context.Context, examID, instanceID string) ([]model.Question, error) {
	paper, err := c.GetExamPaper(ctx, examID, instanceID)
	if err != nil {
		return nil, err
	}
	return paper.Questions, nil
}

// SubmitExam sends the answers of a finished exam. It is not safe to retry
// blindly: the backend rejects a second submission with ALREADY_SUBMITTED.
func (c *Client) SubmitExam(ctx context.Context, req model.SubmitRequest) (*model.SubmitResult, error) {
	body := model.SubmitExamRequest{Answers: req.Answers, Reason: req.Reason}
	if body.Answers == nil {
		body.Answers = map[string]string{}
	}

	var result model.SubmitResult
	if err := c.do(ctx, http.MethodPost, examPath(req.ExamID, req.InstanceID, "submit"), body, &result); err != nil {
		return nil, fmt.Errorf("submit exam: %w", err)
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", env.Metadata.RequestID).
		Dur("took", time.Since(start)).
		Msg("Backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Fields = env.Error.Fields
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func examPath(examID, instanceID, action string) string {
	return fmt.Sprintf("/api/v1/student/exams/%s/instances/%s/%s",
		url.PathEscape(examID), url.PathEscape(instanceID), action)
}
