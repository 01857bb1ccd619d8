// Package api exposes crawl jobs and stored tests over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/IshaanNene/QuizGoat/internal/config"
	"github.com/IshaanNene/QuizGoat/internal/dashboard"
	"github.com/IshaanNene/QuizGoat/internal/engine"
	"github.com/IshaanNene/QuizGoat/internal/observability"
	"github.com/IshaanNene/QuizGoat/internal/report"
	"github.com/IshaanNene/QuizGoat/internal/storage"
	"github.com/IshaanNene/QuizGoat/internal/types"
)

// JobService is the part of the engine the API drives.
type JobService interface {
	Start(ctx context.Context, req engine.StartRequest) (engine.StartResult, error)
	Get(ctx context.Context, jobID string) (engine.Job, error)
	Cancel(ctx context.Context, jobID string) error
	ScanReview(ctx context.Context, jobID string, req engine.ScanRequest) (engine.Job, error)
	Cleanup(ctx context.Context, jobID string) error
}

var notFound = map[string]string{"status": "NOT_FOUND"}

// Server provides the REST API.
type Server struct {
	mux     *http.ServeMux
	cfg     *config.Config
	jobs    JobService
	store   storage.Store
	pdf     report.PDFRenderer
	metrics *observability.Metrics
	logger  *slog.Logger

	httpServer *http.Server
}

// NewServer creates the API server.
func NewServer(cfg *config.Config, jobs JobService, store storage.Store, pdf report.PDFRenderer, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		cfg:     cfg,
		jobs:    jobs,
		store:   store,
		pdf:     pdf,
		metrics: metrics,
		logger:  logger.With("component", "api_server"),
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	// Health
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.Handle("GET /dashboard", dashboard.NewDashboard(s.logger))

	// Crawl jobs
	s.mux.HandleFunc("POST /crawl/start", s.handleStart)
	s.mux.HandleFunc("GET /crawl/{jobId}", s.handleGetJob)
	s.mux.HandleFunc("POST /crawl/{jobId}/cancel", s.handleCancel)
	s.mux.HandleFunc("POST /crawl/{jobId}/scan-review", s.handleScanReview)
	s.mux.HandleFunc("DELETE /crawl/{jobId}", s.handleCleanup)
	s.mux.HandleFunc("GET /crawl/{jobId}/ws", s.handleJobStream)

	// Stored tests
	s.mux.HandleFunc("GET /tests", s.handleListTests)
	s.mux.HandleFunc("GET /tests/{id}", s.handleGetTest)
	s.mux.HandleFunc("GET /tests/{id}/questions", s.handleQuestions)
	s.mux.HandleFunc("GET /tests/{id}/export.json", s.handleExportJSON)
	s.mux.HandleFunc("GET /tests/{id}/download-pdf", s.handleDownloadPDF)

	// Site profiles
	s.mux.HandleFunc("GET /profiles", s.handleListProfiles)
	s.mux.HandleFunc("POST /profiles", s.handleCreateProfile)
	s.mux.HandleFunc("PATCH /profiles/{id}", s.handleUpdateProfile)

	if s.cfg.Metrics.Enabled {
		s.mux.Handle("GET "+s.cfg.Metrics.Path, s.metrics)
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.cfg.Server.Compression {
		h = brotliHandler(h)
	}
	return cors(h)
}

// Start listens in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  config.Version,
		"storage":  s.store.Name(),
		"sessions": s.metrics.ActiveSessions.Load(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"timestamp": time.Now().Format(time.RFC3339),
	}
	for k, v := range s.metrics.Snapshot() {
		stats[k] = v
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body engine.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	res, err := s.jobs.Start(r.Context(), body)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, res)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), r.PathValue("jobId"))
	if errors.Is(err, types.ErrJobNotFound) {
		// Pollers read the status field, so this stays a 200.
		s.jsonResponse(w, http.StatusOK, notFound)
		return
	}
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Cancel(r.Context(), r.PathValue("jobId")); err != nil {
		s.errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScanReview(w http.ResponseWriter, r *http.Request) {
	var body engine.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	job, err := s.jobs.ScanReview(r.Context(), r.PathValue("jobId"), body)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Cleanup(r.Context(), r.PathValue("jobId")); err != nil {
		s.errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTests(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListSessions(r.Context())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if list == nil {
		list = []types.SessionSummary{}
	}
	s.jsonResponse(w, http.StatusOK, list)
}

func (s *Server) handleGetTest(w http.ResponseWriter, r *http.Request) {
	doc, err := report.Load(r.Context(), s.store, r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := s.store.ListQuestions(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if qs == nil {
		qs = []types.Question{}
	}
	s.jsonResponse(w, http.StatusOK, qs)
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := report.Load(r.Context(), s.store, r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.ID+".json"))
	if err := (report.JSONExporter{}).Export(w, doc); err != nil {
		s.logger.Error("export failed", "test_id", doc.ID, "error", err)
	}
}

func (s *Server) handleDownloadPDF(w http.ResponseWriter, r *http.Request) {
	doc, err := report.Load(r.Context(), s.store, r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	q := r.URL.Query()
	opts := report.Options{
		IncludeExplanation: q.Get("includeExplanation") == "true",
		OnlyCorrect:        q.Get("onlyCorrect") == "true",
	}

	data, err := report.PDF(r.Context(), s.pdf, doc, opts)
	if err != nil {
		s.logger.Error("pdf generation failed", "test_id", doc.ID, "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "pdf generation failed"})
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(doc.TestSession, time.Now())))
	h.Set("Content-Length", fmt.Sprint(len(data)))
	if _, err := w.Write(data); err != nil {
		s.logger.Error("pdf write failed", "test_id", doc.ID, "error", err)
	}
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListProfiles(r.Context())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if list == nil {
		list = []types.SiteProfile{}
	}
	s.jsonResponse(w, http.StatusOK, list)
}

type createProfileRequest struct {
	Name          string `json:"name"`
	DomainPattern string `json:"domainPattern"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var body createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	body.DomainPattern = strings.TrimSpace(body.DomainPattern)
	if body.Name == "" || body.DomainPattern == "" {
		s.errorResponse(w, fmt.Errorf("%w: name and domainPattern are required", types.ErrInvalidRequest))
		return
	}

	p := &types.SiteProfile{Name: body.Name, DomainPattern: body.DomainPattern}
	if err := s.store.CreateProfile(r.Context(), p); err != nil {
		s.errorResponse(w, err)
		return
	}
	s.logger.Info("site profile created", "profile_id", p.ID, "domain", p.DomainPattern)
	s.jsonResponse(w, http.StatusCreated, p)
}

type updateProfileRequest struct {
	SelectorMap *types.SelectorMap `json:"selectorMap"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var body updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if body.SelectorMap == nil {
		s.errorResponse(w, fmt.Errorf("%w: selectorMap is required", types.ErrInvalidRequest))
		return
	}
	p, err := s.store.UpdateProfileSelectors(r.Context(), r.PathValue("id"), *body.SelectorMap)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

// errorResponse maps domain errors onto status codes.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrInvalidRequest), errors.Is(err, types.ErrSessionNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrJobNotFound), errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrScanInProgress):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
