package repository

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-taker/internal/model"
)

// questionBank is the on-disk layout of a question bank file.
type questionBank struct {
	Exams []model.Exam `json:"exams"`
}

// LoadExamFile reads a JSON question bank and checks that every exam is usable:
// a UUID exam ID, unique question IDs, and a correct option that is one of the
// question's labels.
func LoadExamFile(path string) ([]model.Exam, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}

	var bank questionBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}

	for i := range bank.Exams {
		if err := validateExam(&bank.Exams[i]); err != nil {
			return nil, err
		}
	}
	return bank.Exams, nil
}

func validateExam(e *model.Exam) error {
	if _, err := uuid.Parse(e.ID); err != nil {
		return fmt.Errorf("exam %q: invalid id: %w", e.ID, err)
	}

	seen := make(map[string]struct{}, len(e.Questions))
	for i := range e.Questions {
		q := &e.Questions[i]
		if q.ID == "" {
			return fmt.Errorf("exam %s: question %d has no id", e.ID, i+1)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("exam %s: duplicate question id %q", e.ID, q.ID)
		}
		seen[q.ID] = struct{}{}

		if len(q.Options) == 0 {
			return fmt.Errorf("exam %s: question %s has no options", e.ID, q.ID)
		}
		if !q.HasOption(q.CorrectOption) {
			return fmt.Errorf("exam %s: question %s: correct option %q is not offered", e.ID, q.ID, q.CorrectOption)
		}
		if q.Number == 0 {
			q.Number = i + 1
		}
	}
	return nil
}
