package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/QuizGoat/internal/config"
	"github.com/IshaanNene/QuizGoat/internal/types"
)

// Store is the interface for all durable backends.
type Store interface {
	// CreateSession inserts a test session, assigning ID and CreatedAt
	// when they are empty.
	CreateSession(ctx context.Context, s *types.TestSession) error

	GetSession(ctx context.Context, id string) (*types.TestSession, error)
	UpdateSessionStatus(ctx context.Context, id string, status types.Status) error

	// ListSessions returns every session, newest first, with question counts.
	ListSessions(ctx context.Context) ([]types.SessionSummary, error)

	// SaveQuestion inserts a question together with its choices in one
	// write. No uniqueness check is made on the hash.
	SaveQuestion(ctx context.Context, q *types.Question) error

	// ListQuestions returns a session's questions ordered by index number,
	// with choices in extraction order.
	ListQuestions(ctx context.Context, sessionID string) ([]types.Question, error)

	// CreateProfile inserts a site profile, assigning ID and timestamps.
	CreateProfile(ctx context.Context, p *types.SiteProfile) error

	// ListProfiles returns every site profile, oldest first.
	ListProfiles(ctx context.Context) ([]types.SiteProfile, error)

	// UpdateProfileSelectors replaces a profile's selector map and returns
	// the updated profile.
	UpdateProfileSelectors(ctx context.Context, id string, sm types.SelectorMap) (*types.SiteProfile, error)

	// Close releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Open creates the backend selected by cfg.Type.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(logger), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, logger)
	case "mongodb":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func prepareSession(s *types.TestSession) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = types.StatusPending
	}
}

func prepareProfile(p *types.SiteProfile) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
}

func prepareQuestion(q *types.Question) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	for i := range q.Choices {
		c := &q.Choices[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.QuestionID = q.ID
		c.Position = i
	}
}
