package storage

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

// MemoryStore keeps everything in process memory. Used for tests and
// throwaway runs.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]types.TestSession
	questions map[string][]types.Question // by session id
	profiles  map[string]types.SiteProfile
	logger    *slog.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]types.TestSession),
		questions: make(map[string][]types.Question),
		profiles:  make(map[string]types.SiteProfile),
		logger:    logger.With("component", "memory_storage"),
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) CreateSession(_ context.Context, ts *types.TestSession) error {
	prepareSession(ts)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[ts.ID] = *ts
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*types.TestSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.sessions[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &ts, nil
}

func (s *MemoryStore) UpdateSessionStatus(_ context.Context, id string, status types.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.sessions[id]
	if !ok {
		return types.ErrNotFound
	}
	ts.Status = status
	s.sessions[id] = ts
	return nil
}

func (s *MemoryStore) ListSessions(_ context.Context) ([]types.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.SessionSummary, 0, len(s.sessions))
	for id, ts := range s.sessions {
		out = append(out, types.SessionSummary{TestSession: ts, QuestionCount: len(s.questions[id])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) SaveQuestion(_ context.Context, q *types.Question) error {
	prepareQuestion(q)
	stored := *q
	stored.Choices = append([]types.Choice(nil), q.Choices...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.TestSessionID] = append(s.questions[q.TestSessionID], stored)
	s.logger.Debug("question stored", "session", q.TestSessionID, "index", q.IndexNumber)
	return nil
}

func (s *MemoryStore) ListQuestions(_ context.Context, sessionID string) ([]types.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qs := make([]types.Question, len(s.questions[sessionID]))
	for i, q := range s.questions[sessionID] {
		q.Choices = append([]types.Choice(nil), q.Choices...)
		qs[i] = q
	}
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].IndexNumber < qs[j].IndexNumber })
	return qs, nil
}

func (s *MemoryStore) CreateProfile(_ context.Context, p *types.SiteProfile) error {
	prepareProfile(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = *p
	return nil
}

func (s *MemoryStore) ListProfiles(_ context.Context) ([]types.SiteProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.SiteProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateProfileSelectors(_ context.Context, id string, sm types.SelectorMap) (*types.SiteProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	p.SelectorMap = &sm
	p.UpdatedAt = time.Now().UTC()
	s.profiles[id] = p
	return &p, nil
}

func (s *MemoryStore) Close() error { return nil }
