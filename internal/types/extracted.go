package types

// ExtractedQuestion is what the extraction cascades produce for one page,
// before it is validated and persisted.
type ExtractedQuestion struct {
	URL          string            `json:"url,omitempty"`
	QuestionText string            `json:"questionText"`
	Choices      []ExtractedChoice `json:"choices"`
	Explanation  string            `json:"explanation"`

	// Strategies records which named strategy produced each field.
	Strategies map[string]string `json:"strategies,omitempty"`
}

// ExtractedChoice is one answer option as read from the page.
type ExtractedChoice struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
	Label     string `json:"label"`
}

// CorrectCount returns how many choices are flagged as correct.
func (q *ExtractedQuestion) CorrectCount() int {
	n := 0
	for _, c := range q.Choices {
		if c.IsCorrect {
			n++
		}
	}
	return n
}
