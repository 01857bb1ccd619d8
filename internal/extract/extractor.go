package extract

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

// Extractor runs the question, choice and explanation cascades against a
// rendered page snapshot.
type Extractor struct {
	question    Cascade[string]
	choices     Cascade[[]types.ExtractedChoice]
	explanation Cascade[string]
	logger      *slog.Logger
}

// New creates an Extractor with the default cascades.
func New(logger *slog.Logger) *Extractor {
	return &Extractor{
		question:    QuestionStrategies(),
		choices:     ChoiceStrategies(),
		explanation: ExplanationStrategies(),
		logger:      logger.With("component", "extractor"),
	}
}

// Extract parses src and returns whatever the cascades found. Missing
// fields are left empty; deciding whether the result is usable is the
// caller's job.
func (e *Extractor) Extract(pageURL, src string) (*types.ExtractedQuestion, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, &types.ExtractError{URL: pageURL, Err: err}
	}

	q := &types.ExtractedQuestion{
		URL:        pageURL,
		Strategies: make(map[string]string, 3),
	}

	if text, name, ok := e.question.Run(doc); ok {
		q.QuestionText = text
		q.Strategies["question"] = name
	}
	if choices, name, ok := e.choices.Run(doc); ok {
		q.Choices = choices
		q.Strategies["choices"] = name
	}
	if text, name, ok := e.explanation.Run(doc); ok {
		q.Explanation = text
		q.Strategies["explanation"] = name
	}

	e.logger.Debug("page extracted",
		"url", pageURL,
		"question_strategy", q.Strategies["question"],
		"choices", len(q.Choices),
		"correct", q.CorrectCount(),
		"has_explanation", q.Explanation != "",
	)
	return q, nil
}
