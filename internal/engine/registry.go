package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/IshaanNene/QuizGoat/internal/config"
	"github.com/IshaanNene/QuizGoat/internal/types"
)

// JobStore holds job records. Update applies fn atomically; if fn returns
// an error nothing is written and the error is returned.
type JobStore interface {
	Create(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	Update(ctx context.Context, id string, fn func(*Job) error) (Job, error)
	Delete(ctx context.Context, id string) error
}

// OpenJobStore builds the registry selected by cfg.Store.
func OpenJobStore(ctx context.Context, cfg config.JobsConfig, logger *slog.Logger) (JobStore, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryJobStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, &types.StorageError{Backend: "redis", Err: err}
		}
		logger.Info("job registry connected", "backend", "redis", "addr", cfg.RedisAddr)
		return NewRedisJobStore(client, cfg.KeyPrefix, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown job store %q", cfg.Store)
	}
}

// MemoryJobStore keeps jobs in a mutex-guarded map.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewMemoryJobStore creates an empty in-process registry.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]Job)}
}

func (s *MemoryJobStore) Create(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = job
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, types.ErrJobNotFound
	}
	return job, nil
}

func (s *MemoryJobStore) Update(_ context.Context, id string, fn func(*Job) error) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, types.ErrJobNotFound
	}
	if err := fn(&job); err != nil {
		return s.jobs[id], err
	}
	s.jobs[id] = job
	return job, nil
}

func (s *MemoryJobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}
