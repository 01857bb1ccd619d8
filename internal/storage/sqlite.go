package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

// SQLStore persists sessions and questions through gorm.
type SQLStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database file.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: err}
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewSQLStore(db, logger)
}

// NewSQLStore wraps an open gorm connection and migrates the schema.
func NewSQLStore(db *gorm.DB, logger *slog.Logger) (*SQLStore, error) {
	if err := db.AutoMigrate(&types.TestSession{}, &types.Question{}, &types.Choice{}, &types.SiteProfile{}); err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("migrate: %w", err)}
	}
	return &SQLStore{
		db:     db,
		logger: logger.With("component", "sql_storage"),
	}, nil
}

func (s *SQLStore) Name() string { return "sqlite" }

func (s *SQLStore) CreateSession(ctx context.Context, ts *types.TestSession) error {
	prepareSession(ts)
	if err := s.db.WithContext(ctx).Create(ts).Error; err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	return nil
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (*types.TestSession, error) {
	var ts types.TestSession
	err := s.db.WithContext(ctx).First(&ts, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return &ts, nil
}

func (s *SQLStore) UpdateSessionStatus(ctx context.Context, id string, status types.Status) error {
	res := s.db.WithContext(ctx).
		Model(&types.TestSession{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return &types.StorageError{Backend: s.Name(), Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListSessions(ctx context.Context) ([]types.SessionSummary, error) {
	var sessions []types.TestSession
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&sessions).Error; err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}

	var counts []struct {
		TestSessionID string
		N             int
	}
	err := s.db.WithContext(ctx).
		Model(&types.Question{}).
		Select("test_session_id, count(*) as n").
		Group("test_session_id").
		Scan(&counts).Error
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	byID := make(map[string]int, len(counts))
	for _, c := range counts {
		byID[c.TestSessionID] = c.N
	}

	out := make([]types.SessionSummary, len(sessions))
	for i, ts := range sessions {
		out[i] = types.SessionSummary{TestSession: ts, QuestionCount: byID[ts.ID]}
	}
	return out, nil
}

func (s *SQLStore) SaveQuestion(ctx context.Context, q *types.Question) error {
	prepareQuestion(q)
	// gorm inserts the choices in the same transaction as the question
	if err := s.db.WithContext(ctx).Create(q).Error; err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	s.logger.Debug("question stored", "session", q.TestSessionID, "index", q.IndexNumber, "choices", len(q.Choices))
	return nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, sessionID string) ([]types.Question, error) {
	var qs []types.Question
	err := s.db.WithContext(ctx).
		Preload("Choices", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Where("test_session_id = ?", sessionID).
		Order("index_number asc").
		Find(&qs).Error
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return qs, nil
}

func (s *SQLStore) CreateProfile(ctx context.Context, p *types.SiteProfile) error {
	prepareProfile(p)
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	return nil
}

func (s *SQLStore) ListProfiles(ctx context.Context) ([]types.SiteProfile, error) {
	var out []types.SiteProfile
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&out).Error; err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return out, nil
}

func (s *SQLStore) UpdateProfileSelectors(ctx context.Context, id string, sm types.SelectorMap) (*types.SiteProfile, error) {
	var p types.SiteProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return err
		}
		p.SelectorMap = &sm
		p.UpdatedAt = time.Now().UTC()
		return tx.Save(&p).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return &p, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
