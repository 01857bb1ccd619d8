package observability

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(testLogger)
	m.QuestionsSaved.Add(3)
	m.ActiveSessions.Store(2)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "quizgoat_questions_saved_total 3\n") {
		t.Errorf("missing saved counter in:\n%s", body)
	}
	if !strings.Contains(body, "# TYPE quizgoat_active_sessions gauge") {
		t.Error("active sessions should be exposed as a gauge")
	}
	if m.Snapshot()["active_sessions"] != 2 {
		t.Errorf("unexpected snapshot %v", m.Snapshot())
	}
}
