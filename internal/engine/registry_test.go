package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/QuizGoat/internal/config"
	"github.com/IshaanNene/QuizGoat/internal/types"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func jobStores(t *testing.T) map[string]JobStore {
	_, client := setupTestRedis(t)
	return map[string]JobStore{
		"memory": NewMemoryJobStore(),
		"redis":  NewRedisJobStore(client, "test:", time.Hour),
	}
}

func TestJobStoreContract(t *testing.T) {
	for name, store := range jobStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "missing")
			assert.True(t, errors.Is(err, types.ErrJobNotFound))

			require.NoError(t, store.Create(ctx, Job{JobID: "j1", Status: types.StatusRunning, Step: StepInit}))

			updated, err := store.Update(ctx, "j1", func(j *Job) error {
				j.Status = types.StatusWaitingForInput
				j.Step = StepWaitingForUser
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, types.StatusWaitingForInput, updated.Status)

			got, err := store.Get(ctx, "j1")
			require.NoError(t, err)
			assert.Equal(t, StepWaitingForUser, got.Step)

			kept, err := store.Update(ctx, "j1", func(j *Job) error {
				j.Progress = 99
				return errSkipUpdate
			})
			assert.ErrorIs(t, err, errSkipUpdate)
			assert.Equal(t, 0, kept.Progress)
			got, _ = store.Get(ctx, "j1")
			assert.Equal(t, 0, got.Progress, "a failed update must not be written")

			_, err = store.Update(ctx, "missing", func(*Job) error { return nil })
			assert.True(t, errors.Is(err, types.ErrJobNotFound))

			require.NoError(t, store.Delete(ctx, "j1"))
			_, err = store.Get(ctx, "j1")
			assert.True(t, errors.Is(err, types.ErrJobNotFound))
			assert.NoError(t, store.Delete(ctx, "j1"))
		})
	}
}

func TestRedisJobStoreKeepsTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisJobStore(client, "quizgoat:", time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, Job{JobID: "abc"}))
	assert.True(t, mr.Exists("quizgoat:job:abc"))

	mr.FastForward(10 * time.Minute)
	_, err := store.Update(ctx, "abc", func(j *Job) error {
		j.Progress = 50
		return nil
	})
	require.NoError(t, err)

	ttl := mr.TTL("quizgoat:job:abc")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 50*time.Minute)

	mr.FastForward(time.Hour)
	_, err = store.Get(ctx, "abc")
	assert.True(t, errors.Is(err, types.ErrJobNotFound))
}

func TestOpenJobStore(t *testing.T) {
	mr, _ := setupTestRedis(t)
	ctx := context.Background()

	cfg := config.DefaultConfig().Jobs
	s, err := OpenJobStore(ctx, cfg, testLogger)
	require.NoError(t, err)
	assert.IsType(t, &MemoryJobStore{}, s)

	cfg.Store = "redis"
	cfg.RedisAddr = mr.Addr()
	s, err = OpenJobStore(ctx, cfg, testLogger)
	require.NoError(t, err)
	assert.IsType(t, &RedisJobStore{}, s)

	cfg.Store = "etcd"
	_, err = OpenJobStore(ctx, cfg, testLogger)
	assert.Error(t, err)
}

func TestBatchProgress(t *testing.T) {
	assert.Equal(t, 35, batchProgress(1, 3))
	assert.Equal(t, 65, batchProgress(2, 3))
	assert.Equal(t, 95, batchProgress(3, 3))
	assert.Equal(t, 5, batchProgress(0, 0))
}
