package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func setupSQLite(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", testLogger)
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func setupMongo(t *testing.T) Store {
	t.Helper()
	uri := os.Getenv("QUIZGOAT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("QUIZGOAT_TEST_MONGO_URI not set, skipping MongoDB tests")
	}
	db := "quizgoat_test_" + strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))
	s, err := NewMongoStore(context.Background(), uri, db, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.client.Database(db).Drop(context.Background())
		s.Close()
	})
	return s
}

func backends(t *testing.T) map[string]func(*testing.T) Store {
	return map[string]func(*testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore(testLogger) },
		"sqlite": setupSQLite,
		"mongo":  setupMongo,
	}
}

func TestStoreSessions(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			older := &types.TestSession{
				SourceLoginURL:     "https://quiz.test/login",
				IncludeExplanation: true,
				CreatedAt:          time.Now().Add(-time.Hour).UTC().Truncate(time.Millisecond),
			}
			require.NoError(t, s.CreateSession(ctx, older))
			assert.NotEmpty(t, older.ID)
			assert.Equal(t, types.StatusPending, older.Status)

			newer := &types.TestSession{
				SourceLoginURL: "https://quiz.test/login",
				SourceTestURL:  "https://quiz.test/review/9",
				Status:         types.StatusRunning,
				Topic:          "Risk",
				TestName:       "Mock 3",
			}
			require.NoError(t, s.CreateSession(ctx, newer))
			assert.NotEqual(t, older.ID, newer.ID)

			got, err := s.GetSession(ctx, newer.ID)
			require.NoError(t, err)
			assert.Equal(t, "Risk", got.Topic)
			assert.Equal(t, "https://quiz.test/review/9", got.SourceTestURL)

			require.NoError(t, s.UpdateSessionStatus(ctx, newer.ID, types.StatusDone))
			got, err = s.GetSession(ctx, newer.ID)
			require.NoError(t, err)
			assert.Equal(t, types.StatusDone, got.Status)

			_, err = s.GetSession(ctx, "missing")
			assert.True(t, errors.Is(err, types.ErrNotFound))
			assert.True(t, errors.Is(s.UpdateSessionStatus(ctx, "missing", types.StatusDone), types.ErrNotFound))

			list, err := s.ListSessions(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, newer.ID, list[0].ID, "newest session first")
		})
	}
}

func TestStoreQuestions(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			ts := &types.TestSession{SourceLoginURL: "https://quiz.test/login"}
			require.NoError(t, s.CreateSession(ctx, ts))

			for _, idx := range []int{3, 1} {
				q := &types.Question{
					TestSessionID: ts.ID,
					IndexNumber:   idx,
					QuestionText:  "Question " + string(rune('0'+idx)),
					Hash:          Hash("Question"),
					Choices: []types.Choice{
						{Text: "first"},
						{Text: "second", IsCorrect: true},
						{Text: "third"},
					},
				}
				require.NoError(t, s.SaveQuestion(ctx, q))
				assert.NotEmpty(t, q.ID)
				for _, c := range q.Choices {
					assert.Equal(t, q.ID, c.QuestionID)
				}
			}

			qs, err := s.ListQuestions(ctx, ts.ID)
			require.NoError(t, err)
			require.Len(t, qs, 2)
			assert.Equal(t, 1, qs[0].IndexNumber)
			assert.Equal(t, 3, qs[1].IndexNumber)
			require.Len(t, qs[0].Choices, 3)
			assert.Equal(t, []string{"first", "second", "third"},
				[]string{qs[0].Choices[0].Text, qs[0].Choices[1].Text, qs[0].Choices[2].Text})
			assert.True(t, qs[0].Choices[1].IsCorrect)

			list, err := s.ListSessions(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, 2, list[0].QuestionCount)

			empty, err := s.ListQuestions(ctx, "no-such-session")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStoreProfiles(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			first := &types.SiteProfile{
				Name:          "PMI e-learning",
				DomainPattern: "elearning.vnpmi.org",
				CreatedAt:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			}
			second := &types.SiteProfile{Name: "Other", DomainPattern: "*.quiz.test"}
			require.NoError(t, s.CreateProfile(ctx, first))
			require.NoError(t, s.CreateProfile(ctx, second))
			assert.NotEmpty(t, first.ID)
			assert.Nil(t, first.SelectorMap)

			list, err := s.ListProfiles(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, first.ID, list[0].ID)
			assert.Equal(t, "*.quiz.test", list[1].DomainPattern)

			updated, err := s.UpdateProfileSelectors(ctx, first.ID, types.SelectorMap{
				QuestionText:  ".question-content",
				CorrectMarker: ".text-success",
			})
			require.NoError(t, err)
			require.NotNil(t, updated.SelectorMap)
			assert.Equal(t, ".question-content", updated.SelectorMap.QuestionText)
			assert.Equal(t, "PMI e-learning", updated.Name)

			list, err = s.ListProfiles(ctx)
			require.NoError(t, err)
			require.NotNil(t, list[0].SelectorMap)
			assert.Equal(t, ".text-success", list[0].SelectorMap.CorrectMarker)
			assert.Nil(t, list[1].SelectorMap)

			_, err = s.UpdateProfileSelectors(ctx, "missing", types.SelectorMap{})
			assert.True(t, errors.Is(err, types.ErrNotFound))
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), configFor("postgres"), testLogger)
	assert.Error(t, err)
}
