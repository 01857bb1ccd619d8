package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/QuizGoat/internal/browser/browsertest"
	"github.com/IshaanNene/QuizGoat/internal/config"
	"github.com/IshaanNene/QuizGoat/internal/engine"
	"github.com/IshaanNene/QuizGoat/internal/observability"
	"github.com/IshaanNene/QuizGoat/internal/storage"
	"github.com/IshaanNene/QuizGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	loginURL  = "https://quiz.test/login"
	reviewURL = "https://quiz.test/review/1"

	reviewPage = `<html><body><div id="pills-tabContent">
  <a class="col-fill" href="/q/1">1</a><a class="col-fill" href="/q/2">2</a>
</div></body></html>`

	questionPage = `<html><body>
  <div class="question-content">Which is blue?</div>
  <label><input type="radio"> grass</label>
  <label class="text-success"><input type="radio"> sky</label>
  <p><b>Note:</b> Rayleigh scattering.</p>
</body></html>`
)

type fakePDF struct{}

func (fakePDF) RenderPDF(context.Context, string) ([]byte, error) {
	return []byte("%PDF-1.4 fake"), nil
}

type testAPI struct {
	srv      *Server
	handler  http.Handler
	mgr      *engine.Manager
	launcher *browsertest.Launcher
	store    storage.Store
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Site.Origin = "https://quiz.test"
	cfg.Scan.ShowAllTimeout = 20 * time.Millisecond
	cfg.Scan.SettleDelay = 0
	cfg.Scan.ItemDelay = 0
	cfg.Server.ProgressInterval = 10 * time.Millisecond

	site := browsertest.NewSite().
		Page(loginURL, "<html><body>Sign in</body></html>").
		Page("https://quiz.test/q/1", questionPage).
		Page("https://quiz.test/q/2", questionPage)
	launcher := browsertest.NewLauncher(site)
	store := storage.NewMemoryStore(testLogger)
	metrics := observability.NewMetrics(testLogger)

	mgr, err := engine.NewManager(cfg, launcher, engine.NewMemoryJobStore(), store, metrics, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mgr.Shutdown(ctx)
	})

	srv := NewServer(cfg, mgr, store, fakePDF{}, metrics, testLogger)
	return &testAPI{srv: srv, handler: srv.Handler(), mgr: mgr, launcher: launcher, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// startJob starts a job and waits until the browser sits on the login page.
func (a *testAPI) startJob(t *testing.T) engine.StartResult {
	t.Helper()
	rec := a.do(t, "POST", "/crawl/start", `{"loginUrl":"`+loginURL+`","testUrl":"","mode":"review"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[engine.StartResult](t, rec)
	require.NotEmpty(t, res.JobID)

	require.Eventually(t, func() bool {
		job := decode[engine.Job](t, a.do(t, "GET", "/crawl/"+res.JobID, ""))
		return job.Status == types.StatusWaitingForInput
	}, 3*time.Second, 5*time.Millisecond)
	a.mgr.Wait()
	return res
}

func TestHealth(t *testing.T) {
	a := setupAPI(t)
	rec := a.do(t, "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["storage"])
}

func TestCrawlLifecycle(t *testing.T) {
	a := setupAPI(t)
	res := a.startJob(t)

	a.launcher.LastPage().SetContent(reviewURL, reviewPage)
	rec := a.do(t, "POST", "/crawl/"+res.JobID+"/scan-review", `{"topic":"Colours","testName":"Quiz 1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	job := decode[engine.Job](t, rec)
	assert.Equal(t, types.StatusRunning, job.Status)
	assert.Equal(t, engine.StepScanningReviewPage, job.Step)
	a.mgr.Wait()

	job = decode[engine.Job](t, a.do(t, "GET", "/crawl/"+res.JobID, ""))
	assert.Equal(t, types.StatusWaitingForInput, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 2, job.TotalQuestions)

	tests := decode[[]types.SessionSummary](t, a.do(t, "GET", "/tests", ""))
	require.Len(t, tests, 2)
	assert.Equal(t, job.TestID, tests[0].ID)
	assert.Equal(t, 2, tests[0].QuestionCount)

	qs := decode[[]types.Question](t, a.do(t, "GET", "/tests/"+job.TestID+"/questions", ""))
	require.Len(t, qs, 2)
	assert.Equal(t, "Which is blue?", qs[0].QuestionText)
	assert.Equal(t, "Rayleigh scattering.", qs[0].Explanation)
	assert.True(t, qs[0].Choices[1].IsCorrect)

	detail := decode[map[string]any](t, a.do(t, "GET", "/tests/"+job.TestID, ""))
	assert.Equal(t, "Quiz 1", detail["testName"])
	assert.Len(t, detail["questions"], 2)

	rec = a.do(t, "GET", "/tests/"+job.TestID+"/export.json", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), job.TestID+".json")

	rec = a.do(t, "GET", "/tests/"+job.TestID+"/download-pdf?includeExplanation=true", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Quiz_1_Colours_")
	assert.Equal(t, "%PDF-1.4 fake", rec.Body.String())

	rec = a.do(t, "POST", "/crawl/"+res.JobID+"/cancel", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	job = decode[engine.Job](t, a.do(t, "GET", "/crawl/"+res.JobID, ""))
	assert.Equal(t, types.StatusFailed, job.Status)
	assert.Equal(t, engine.CancelledMessage, job.ErrorMessage)

	rec = a.do(t, "POST", "/crawl/"+res.JobID+"/scan-review", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, "DELETE", "/crawl/"+res.JobID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	body := decode[map[string]string](t, a.do(t, "GET", "/crawl/"+res.JobID, ""))
	assert.Equal(t, "NOT_FOUND", body["status"])
}

func TestRequestErrors(t *testing.T) {
	a := setupAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"bad json", "POST", "/crawl/start", "{", http.StatusBadRequest},
		{"bad login url", "POST", "/crawl/start", `{"loginUrl":"nope"}`, http.StatusBadRequest},
		{"scan unknown job", "POST", "/crawl/missing/scan-review", "{}", http.StatusNotFound},
		{"cancel unknown job", "POST", "/crawl/missing/cancel", "", http.StatusNoContent},
		{"unknown test", "GET", "/tests/missing", "", http.StatusNotFound},
		{"unknown test pdf", "GET", "/tests/missing/download-pdf", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	body := decode[map[string]string](t, a.do(t, "GET", "/crawl/missing", ""))
	assert.Equal(t, "NOT_FOUND", body["status"])

	assert.Equal(t, "[]\n", a.do(t, "GET", "/tests/missing/questions", "").Body.String())
}

func TestBrotliCompression(t *testing.T) {
	a := setupAPI(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))
	plain, err := io.ReadAll(brotli.NewReader(rec.Body))
	require.NoError(t, err)
	assert.Contains(t, string(plain), `"status":"ok"`)

	req = httptest.NewRequest("POST", "/crawl/missing/cancel", nil)
	req.Header.Set("Accept-Encoding", "br")
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Zero(t, rec.Body.Len())
}

func TestCORSPreflight(t *testing.T) {
	a := setupAPI(t)
	rec := a.do(t, "OPTIONS", "/crawl/start", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestMetricsAndDashboard(t *testing.T) {
	a := setupAPI(t)
	a.startJob(t)

	rec := a.do(t, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "quizgoat_jobs_started_total 1")

	stats := decode[map[string]any](t, a.do(t, "GET", "/api/stats", ""))
	assert.EqualValues(t, 1, stats["active_sessions"])

	rec = a.do(t, "GET", "/dashboard", "")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "QuizGoat")
}

func TestJobStream(t *testing.T) {
	a := setupAPI(t)
	res := a.startJob(t)

	ts := httptest.NewServer(a.handler)
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/crawl/"+res.JobID+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	var job engine.Job
	require.NoError(t, conn.ReadJSON(&job))
	assert.Equal(t, res.JobID, job.JobID)
	assert.Equal(t, types.StatusWaitingForInput, job.Status)

	a.do(t, "POST", "/crawl/"+res.JobID+"/cancel", "")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&job))
	assert.Equal(t, types.StatusFailed, job.Status)

	missing, _, err := websocket.DefaultDialer.Dial(wsURL+"/crawl/missing/ws", nil)
	require.NoError(t, err)
	defer missing.Close()
	var body map[string]string
	require.NoError(t, missing.ReadJSON(&body))
	assert.Equal(t, "NOT_FOUND", body["status"])
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	header http.Header
	status int
}

func (w *brokenWriter) Header() http.Header {
	if w.header == nil {
		w.header = http.Header{}
	}
	return w.header
}

func (w *brokenWriter) WriteHeader(code int) { w.status = code }

func (w *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("client went away") }

func TestDownloadPDFLogsWriteFailure(t *testing.T) {
	a := setupAPI(t)
	var logs bytes.Buffer
	a.srv.logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelError}))

	ts := &types.TestSession{TestName: "Quiz"}
	require.NoError(t, a.store.CreateSession(context.Background(), ts))

	w := &brokenWriter{}
	a.srv.mux.ServeHTTP(w, httptest.NewRequest("GET", "/tests/"+ts.ID+"/download-pdf", nil))

	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, logs.String(), "pdf write failed")
	assert.Contains(t, logs.String(), ts.ID)
}

func TestSiteProfiles(t *testing.T) {
	a := setupAPI(t)

	assert.Equal(t, "[]\n", a.do(t, "GET", "/profiles", "").Body.String())

	rec := a.do(t, "POST", "/profiles", `{"name":"PMI","domainPattern":"elearning.vnpmi.org"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[types.SiteProfile](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Nil(t, created.SelectorMap)

	rec = a.do(t, "PATCH", "/profiles/"+created.ID, `{"selectorMap":{"questionText":".question-content","nextButton":"a.next"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[types.SiteProfile](t, rec)
	require.NotNil(t, updated.SelectorMap)
	assert.Equal(t, ".question-content", updated.SelectorMap.QuestionText)

	list := decode[[]types.SiteProfile](t, a.do(t, "GET", "/profiles", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "a.next", list[0].SelectorMap.NextButton)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"missing domain", "POST", "/profiles", `{"name":"x"}`, http.StatusBadRequest},
		{"bad json", "POST", "/profiles", "{", http.StatusBadRequest},
		{"no selector map", "PATCH", "/profiles/" + created.ID, `{}`, http.StatusBadRequest},
		{"unknown profile", "PATCH", "/profiles/missing", `{"selectorMap":{}}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}
