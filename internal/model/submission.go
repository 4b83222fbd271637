package model

import "time"

// SubmitRequest is the outbound submission carried to the backend.
type SubmitRequest struct {
	ExamID     string            `json:"exam_id"`
	InstanceID string            `json:"instance_id"`
	Answers    map[string]string `json:"answers"`
	Reason     Reason            `json:"reason"`
}

// SubmitExamRequest is the HTTP body of a submission; exam and instance come from the path.
type SubmitExamRequest struct {
	Answers map[string]string `json:"answers" binding:"dive,keys,required,endkeys,required,max=10"`
	Reason  Reason            `json:"reason" binding:"required,oneof=manual time_expired tab_switch"`
}

// SubmitResult is the grading outcome returned by the backend.
type SubmitResult struct {
	Success        bool    `json:"success"`
	CorrectAnswers int     `json:"correct_answers"`
	TotalQuestions int     `json:"total_questions"`
	Score          float64 `json:"score"`
}

// SubmissionRecord is a graded submission as persisted by the backend.
type SubmissionRecord struct {
	ExamID         string            `json:"exam_id"`
	InstanceID     string            `json:"instance_id"`
	StudentID      int               `json:"student_id"`
	Reason         Reason            `json:"reason"`
	Answers        map[string]string `json:"answers"`
	CorrectAnswers int               `json:"correct_answers"`
	TotalQuestions int               `json:"total_questions"`
	Score          float64           `json:"score"`
	SubmittedAt    time.Time         `json:"submitted_at"`
}
