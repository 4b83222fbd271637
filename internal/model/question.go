package model

// Option is one labeled choice of a question, e.g. {"A", "Paris"}.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question represents a single exam item as delivered to the student.
type Question struct {
	ID      string   `json:"id"`
	Number  int      `json:"number"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// HasOption reports whether label is one of the question's choices.
func (q Question) HasOption(label string) bool {
	for _, o := range q.Options {
		if o.Label == label {
			return true
		}
	}
	return false
}

// BankQuestion is a question together with its correct option, as stored on the server.
type BankQuestion struct {
	Question
	CorrectOption string `json:"correct_option"`
}
