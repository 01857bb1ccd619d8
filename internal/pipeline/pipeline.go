package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

// Middleware processes an extracted question and returns the (possibly
// modified) question. Return nil to drop it.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a question. Return nil to drop it.
	Process(q *types.ExtractedQuestion) (*types.ExtractedQuestion, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the pipeline every scanned page goes through: trim, then
// require question text and at least one choice.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(&RequiredMiddleware{})
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the question through all middleware in order. A nil result
// with a nil error means the question was dropped.
func (p *Pipeline) Process(q *types.ExtractedQuestion) (*types.ExtractedQuestion, error) {
	current := q

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("question dropped", "stage", mw.Name(), "url", q.URL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
