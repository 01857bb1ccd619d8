package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational metrics for the crawler.
type Metrics struct {
	// Job metrics
	JobsStarted   atomic.Int64
	JobsFailed    atomic.Int64
	JobsCancelled atomic.Int64

	// Batch metrics
	BatchesStarted   atomic.Int64
	BatchesCompleted atomic.Int64
	BatchesFailed    atomic.Int64

	// Item metrics
	PagesVisited   atomic.Int64
	QuestionsSaved atomic.Int64
	ItemsSkipped   atomic.Int64
	SaveErrors     atomic.Int64

	// Browser metrics
	ActiveSessions  atomic.Int32
	DialogsAccepted atomic.Int64
	LoginAttempts   atomic.Int64
	LoginConflicts  atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		kind  string
		value int64
	}{
		{"quizgoat_jobs_started_total", "Total crawl jobs started", "counter", m.JobsStarted.Load()},
		{"quizgoat_jobs_failed_total", "Total crawl jobs that failed to initialise", "counter", m.JobsFailed.Load()},
		{"quizgoat_jobs_cancelled_total", "Total crawl jobs cancelled by the user", "counter", m.JobsCancelled.Load()},
		{"quizgoat_batches_started_total", "Total review-page batches started", "counter", m.BatchesStarted.Load()},
		{"quizgoat_batches_completed_total", "Total review-page batches completed", "counter", m.BatchesCompleted.Load()},
		{"quizgoat_batches_failed_total", "Total review-page batches failed", "counter", m.BatchesFailed.Load()},
		{"quizgoat_pages_visited_total", "Total question pages visited", "counter", m.PagesVisited.Load()},
		{"quizgoat_questions_saved_total", "Total questions persisted", "counter", m.QuestionsSaved.Load()},
		{"quizgoat_items_skipped_total", "Total question pages skipped", "counter", m.ItemsSkipped.Load()},
		{"quizgoat_save_errors_total", "Total persistence failures", "counter", m.SaveErrors.Load()},
		{"quizgoat_active_sessions", "Currently open browser sessions", "gauge", int64(m.ActiveSessions.Load())},
		{"quizgoat_dialogs_accepted_total", "Total native dialogs auto-accepted", "counter", m.DialogsAccepted.Load()},
		{"quizgoat_login_attempts_total", "Total automatic login attempts", "counter", m.LoginAttempts.Load()},
		{"quizgoat_login_conflicts_total", "Total login conflicts resubmitted", "counter", m.LoginConflicts.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"jobs_started":      m.JobsStarted.Load(),
		"jobs_failed":       m.JobsFailed.Load(),
		"jobs_cancelled":    m.JobsCancelled.Load(),
		"batches_started":   m.BatchesStarted.Load(),
		"batches_completed": m.BatchesCompleted.Load(),
		"batches_failed":    m.BatchesFailed.Load(),
		"pages_visited":     m.PagesVisited.Load(),
		"questions_saved":   m.QuestionsSaved.Load(),
		"items_skipped":     m.ItemsSkipped.Load(),
		"save_errors":       m.SaveErrors.Load(),
		"active_sessions":   int64(m.ActiveSessions.Load()),
		"dialogs_accepted":  m.DialogsAccepted.Load(),
		"login_attempts":    m.LoginAttempts.Load(),
		"login_conflicts":   m.LoginConflicts.Load(),
	}
}
