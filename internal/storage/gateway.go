package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

// MaxTextLength caps persisted question text and explanation, in characters.
const MaxTextLength = 5000

// Gateway turns extracted questions into durable records.
type Gateway struct {
	store  Store
	logger *slog.Logger
}

// NewGateway creates a Gateway writing to store.
func NewGateway(store Store, logger *slog.Logger) *Gateway {
	return &Gateway{
		store:  store,
		logger: logger.With("component", "gateway"),
	}
}

// Store returns the underlying store.
func (g *Gateway) Store() Store { return g.store }

// Save writes one question with its choices under sessionID. The hash is
// computed over the full question text and is never checked for
// duplicates; extracting the same page twice stores it twice.
func (g *Gateway) Save(ctx context.Context, sessionID string, index int, eq *types.ExtractedQuestion) (*types.Question, error) {
	q := &types.Question{
		TestSessionID: sessionID,
		IndexNumber:   index,
		QuestionText:  Truncate(eq.QuestionText, MaxTextLength),
		Explanation:   Truncate(eq.Explanation, MaxTextLength),
		Hash:          Hash(eq.QuestionText),
		Choices:       make([]types.Choice, len(eq.Choices)),
	}
	for i, c := range eq.Choices {
		q.Choices[i] = types.Choice{
			Text:      c.Text,
			IsCorrect: c.IsCorrect,
			Label:     c.Label,
		}
	}

	if err := g.store.SaveQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Hash returns the md5 hex digest of text.
func Hash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
