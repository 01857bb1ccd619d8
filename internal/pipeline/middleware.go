package pipeline

import (
	"strings"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

// TrimMiddleware trims whitespace from the question, explanation and
// every choice.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(q *types.ExtractedQuestion) (*types.ExtractedQuestion, error) {
	q.QuestionText = strings.TrimSpace(q.QuestionText)
	q.Explanation = strings.TrimSpace(q.Explanation)
	for i := range q.Choices {
		q.Choices[i].Text = strings.TrimSpace(q.Choices[i].Text)
	}
	return q, nil
}

// RequiredMiddleware drops questions without text or without choices.
type RequiredMiddleware struct{}

func (m *RequiredMiddleware) Name() string { return "required" }

func (m *RequiredMiddleware) Process(q *types.ExtractedQuestion) (*types.ExtractedQuestion, error) {
	if q.QuestionText == "" || len(q.Choices) == 0 {
		return nil, nil
	}
	return q, nil
}

// LabelMiddleware assigns A, B, C... to choices that have no label yet.
// It is not part of the default pipeline; labels are normally left for
// editorial review.
type LabelMiddleware struct{}

func (m *LabelMiddleware) Name() string { return "label" }

func (m *LabelMiddleware) Process(q *types.ExtractedQuestion) (*types.ExtractedQuestion, error) {
	for i := range q.Choices {
		if q.Choices[i].Label == "" && i < 26 {
			q.Choices[i].Label = string(rune('A' + i))
		}
	}
	return q, nil
}
