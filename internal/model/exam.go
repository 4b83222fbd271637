package model

// Exam is an exam definition held by the backend question bank.
type Exam struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	DurationSeconds int            `json:"duration_seconds"`
	Questions       []BankQuestion `json:"questions"`
}

// AnswerKey maps question ID to its correct option label.
func (e *Exam) AnswerKey() map[string]string {
	key := make(map[string]string, len(e.Questions))
	for _, q := range e.Questions {
		key[q.ID] = q.CorrectOption
	}
	return key
}

// ExamPaper is the payload sent to students (no correct answers).
type ExamPaper struct {
	ExamID          string     `json:"exam_id"`
	InstanceID      string     `json:"instance_id"`
	Title           string     `json:"title"`
	DurationSeconds int        `json:"duration_seconds"`
	Questions       []Question `json:"questions"`
}

// Paper strips the answer key from the exam for the given instance.
func (e *Exam) Paper(instanceID string) *ExamPaper {
	questions := make([]Question, len(e.Questions))
	for i, q := range e.Questions {
		questions[i] = q.Question
	}
	return &ExamPaper{
		ExamID:          e.ID,
		InstanceID:      instanceID,
		Title:           e.Title,
		DurationSeconds: e.DurationSeconds,
		Questions:       questions,
	}
}
