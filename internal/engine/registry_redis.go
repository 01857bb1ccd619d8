package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

const maxUpdateRetries = 10

// RedisJobStore keeps jobs as JSON values so several API replicas can
// report progress for the same job.
type RedisJobStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisJobStore creates a registry on rdb. Keys are prefix+"job:"+id and
// expire after ttl (0 keeps them forever).
func NewRedisJobStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisJobStore {
	return &RedisJobStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisJobStore) key(id string) string {
	return s.prefix + "job:" + id
}

func (s *RedisJobStore) Create(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(job.JobID), data, s.ttl).Err(); err != nil {
		return &types.StorageError{Backend: "redis", Err: err}
	}
	return nil
}

func (s *RedisJobStore) Get(ctx context.Context, id string) (Job, error) {
	return s.read(ctx, s.rdb, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisJobStore) read(ctx context.Context, c getter, id string) (Job, error) {
	raw, err := c.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return Job{}, types.ErrJobNotFound
	}
	if err != nil {
		return Job{}, &types.StorageError{Backend: "redis", Err: err}
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return Job{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return job, nil
}

// Update runs fn inside WATCH/MULTI and retries when another writer got in
// first.
func (s *RedisJobStore) Update(ctx context.Context, id string, fn func(*Job) error) (Job, error) {
	key := s.key(id)
	var result Job

	txf := func(tx *redis.Tx) error {
		job, err := s.read(ctx, tx, id)
		if err != nil {
			return err
		}
		result = job
		if err := fn(&job); err != nil {
			return err
		}
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("encode job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		if err == nil {
			result = job
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return result, err
	}
	return result, &types.StorageError{Backend: "redis", Err: fmt.Errorf("update of job %s kept conflicting", id)}
}

func (s *RedisJobStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return &types.StorageError{Backend: "redis", Err: err}
	}
	return nil
}
