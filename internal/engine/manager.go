package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/IshaanNene/QuizGoat/internal/browser"
	"github.com/IshaanNene/QuizGoat/internal/config"
	"github.com/IshaanNene/QuizGoat/internal/observability"
	"github.com/IshaanNene/QuizGoat/internal/storage"
	"github.com/IshaanNene/QuizGoat/internal/types"
)

// StartRequest is the body of a crawl start.
type StartRequest struct {
	LoginURL string        `json:"loginUrl"`
	TestURL  string        `json:"testUrl"`
	Username string        `json:"username"`
	Password string        `json:"password"`
	Mode     string        `json:"mode"`
	Options  *StartOptions `json:"options,omitempty"`
}

// StartOptions are the optional per-job knobs.
type StartOptions struct {
	IncludeExplanation *bool `json:"includeExplanation,omitempty"`
	MaxQuestions       int   `json:"maxQuestions,omitempty"`
	Headless           *bool `json:"headless,omitempty"`
}

// StartResult identifies the job that was started.
type StartResult struct {
	JobID  string `json:"jobId"`
	TestID string `json:"testId"`
}

// ScanRequest labels the test session a review scan creates.
type ScanRequest struct {
	Topic    string `json:"topic"`
	TestName string `json:"testName"`
}

// Manager owns the crawl jobs and everything attached to them.
type Manager struct {
	cfg      *config.Config
	jobs     JobStore
	store    storage.Store
	sessions *SessionManager
	login    *Login
	scanner  *Scanner
	metrics  *observability.Metrics
	logger   *slog.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewManager wires a Manager. Session contexts derive from an internal
// context that Shutdown cancels, not from any request.
func NewManager(cfg *config.Config, launcher browser.Launcher, jobs JobStore, store storage.Store, metrics *observability.Metrics, logger *slog.Logger) (*Manager, error) {
	scanner, err := NewScanner(cfg, nil, storage.NewGateway(store, logger), metrics, logger)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:        cfg,
		jobs:       jobs,
		store:      store,
		sessions:   NewSessionManager(launcher, metrics, logger),
		login:      NewLogin(cfg.Login, metrics, logger),
		scanner:    scanner,
		metrics:    metrics,
		logger:     logger.With("component", "jobs"),
		baseCtx:    ctx,
		baseCancel: cancel,
	}, nil
}

// Sessions exposes the session manager.
func (m *Manager) Sessions() *SessionManager { return m.sessions }

// Start registers a job, creates its first test session and opens the
// browser in the background. It returns as soon as both records exist.
func (m *Manager) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	if err := config.ValidateURL(req.LoginURL); err != nil {
		return StartResult{}, fmt.Errorf("%w: loginUrl: %v", types.ErrInvalidRequest, err)
	}

	includeExplanation := true
	if req.Options != nil && req.Options.IncludeExplanation != nil {
		includeExplanation = *req.Options.IncludeExplanation
	}
	ts := &types.TestSession{
		SourceLoginURL:     req.LoginURL,
		SourceTestURL:      req.TestURL,
		Status:             types.StatusPending,
		IncludeExplanation: includeExplanation,
	}
	if err := m.store.CreateSession(ctx, ts); err != nil {
		return StartResult{}, err
	}

	job := Job{
		JobID:  uuid.NewString(),
		TestID: ts.ID,
		Status: types.StatusRunning,
		Step:   StepInit,
	}
	if err := m.jobs.Create(ctx, job); err != nil {
		return StartResult{}, err
	}
	m.metrics.JobsStarted.Add(1)
	m.logger.Info("job started", "job_id", job.JobID, "test_id", ts.ID, "mode", req.Mode)

	// Reserved before returning so a cancel that arrives first aborts the
	// launch.
	slot := m.sessions.Reserve(m.baseCtx, job.JobID)
	m.wg.Add(1)
	go m.initSession(slot, req)

	return StartResult{JobID: job.JobID, TestID: ts.ID}, nil
}

func (m *Manager) openOptions(req StartRequest) OpenOptions {
	opts := OpenOptions{
		Launch: browser.LaunchOptions{
			Headless:   m.cfg.Browser.Headless,
			Bin:        m.cfg.Browser.Bin,
			NoSandbox:  m.cfg.Browser.NoSandbox,
			WindowSize: m.cfg.Browser.WindowSize,
		},
	}
	if req.Options != nil {
		if req.Options.Headless != nil {
			opts.Launch.Headless = *req.Options.Headless
		}
		opts.MaxQuestions = req.Options.MaxQuestions
	}
	return opts
}

func (m *Manager) initSession(slot *Reservation, req StartRequest) {
	defer m.wg.Done()
	jobID := slot.jobID
	log := m.logger.With("job_id", jobID)

	sess, err := slot.Open(m.openOptions(req))
	if err != nil {
		m.sessions.Close(jobID)
		_, uerr := m.jobs.Update(m.baseCtx, jobID, func(j *Job) error {
			if j.Status == types.StatusFailed {
				return errSkipUpdate
			}
			j.Status = types.StatusFailed
			j.ErrorMessage = err.Error()
			return nil
		})
		if uerr == nil {
			m.metrics.JobsFailed.Add(1)
			log.Error("browser launch failed", "error", err)
		}
		return
	}

	_, err = m.jobs.Update(m.baseCtx, jobID, func(j *Job) error {
		if j.Status == types.StatusFailed {
			return errSkipUpdate
		}
		j.Status = types.StatusWaitingForInput
		j.Step = StepWaitingForUser
		return nil
	})
	if err != nil {
		// Cancelled or removed while the browser was starting.
		log.Info("job ended during launch, closing browser", "reason", err)
		m.sessions.Close(jobID)
		return
	}

	ctx := sess.Context()
	if err := sess.Page.Navigate(ctx, req.LoginURL, m.cfg.Browser.NavigationTimeout); err != nil {
		log.Warn("login page not loaded, the user can navigate manually", "url", req.LoginURL, "error", err)
		return
	}

	if req.Username != "" && req.Password != "" {
		outcome, err := m.login.Run(ctx, sess.Page, req.Username, req.Password)
		if err != nil {
			log.Warn("automatic login did not complete", "outcome", outcome, "error", err)
		} else {
			log.Info("automatic login finished", "outcome", outcome)
		}
	}
	m.sessions.Touch(jobID)
}

// Get returns a snapshot of the job.
func (m *Manager) Get(ctx context.Context, jobID string) (Job, error) {
	return m.jobs.Get(ctx, jobID)
}

// Cancel fails the job with CancelledMessage and closes its browser.
// Unknown jobs and jobs that already failed keep their record.
func (m *Manager) Cancel(ctx context.Context, jobID string) error {
	_, err := m.jobs.Update(ctx, jobID, func(j *Job) error {
		if j.Status == types.StatusFailed {
			return errSkipUpdate
		}
		j.Status = types.StatusFailed
		j.ErrorMessage = CancelledMessage
		return nil
	})
	switch {
	case err == nil:
		m.metrics.JobsCancelled.Add(1)
		m.logger.Info("job cancelled", "job_id", jobID)
	case errors.Is(err, errSkipUpdate), errors.Is(err, types.ErrJobNotFound):
	default:
		return err
	}
	m.sessions.Close(jobID)
	return nil
}

// ScanReview starts a batch over the review page the user has open. Each
// call records a fresh test session; earlier ones are kept.
func (m *Manager) ScanReview(ctx context.Context, jobID string, req ScanRequest) (Job, error) {
	job, err := m.jobs.Get(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	sess, ok := m.sessions.Get(jobID)
	if !ok {
		return Job{}, types.ErrSessionNotFound
	}
	if !sess.beginScan() {
		return Job{}, types.ErrScanInProgress
	}

	started := false
	defer func() {
		if !started {
			sess.endScan()
		}
	}()

	ts := &types.TestSession{
		SourceTestURL:      sess.Page.CurrentURL(),
		Status:             types.StatusRunning,
		Topic:              req.Topic,
		TestName:           req.TestName,
		IncludeExplanation: true,
	}
	prev, err := m.store.GetSession(ctx, job.TestID)
	switch {
	case err == nil:
		ts.SourceLoginURL = prev.SourceLoginURL
		ts.IncludeExplanation = prev.IncludeExplanation
	case errors.Is(err, types.ErrNotFound):
		m.logger.Warn("previous test session missing", "job_id", jobID, "test_id", job.TestID)
	default:
		return Job{}, err
	}
	if err := m.store.CreateSession(ctx, ts); err != nil {
		return Job{}, err
	}

	updated, err := m.jobs.Update(ctx, jobID, func(j *Job) error {
		// A cancel may have landed since the session lookup.
		if sess.Context().Err() != nil || (j.Status == types.StatusFailed && j.ErrorMessage == CancelledMessage) {
			return types.ErrSessionNotFound
		}
		j.TestID = ts.ID
		j.Status = types.StatusRunning
		j.Step = StepScanningReviewPage
		j.Progress = 0
		j.ErrorMessage = ""
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrSessionNotFound) {
			m.setSessionStatus(ts.ID, types.StatusFailed)
		}
		return Job{}, err
	}

	started = true
	m.sessions.Touch(jobID)
	m.metrics.BatchesStarted.Add(1)
	m.logger.Info("review scan started", "job_id", jobID, "test_id", ts.ID, "url", ts.SourceTestURL)

	m.wg.Add(1)
	go m.runBatch(sess, BatchRequest{
		JobID:         jobID,
		TestSessionID: ts.ID,
		MaxQuestions:  sess.MaxQuestions,
	})
	return updated, nil
}

func (m *Manager) runBatch(sess *Session, req BatchRequest) {
	defer m.wg.Done()
	defer sess.endScan()
	log := m.logger.With("job_id", req.JobID, "test_id", req.TestSessionID)

	// Batch updates only land while the job is still running, so a cancel
	// is never overwritten.
	whileRunning := func(fn func(*Job)) error {
		_, err := m.jobs.Update(m.baseCtx, req.JobID, func(j *Job) error {
			if j.Status != types.StatusRunning {
				return errSkipUpdate
			}
			fn(j)
			return nil
		})
		return err
	}

	res, err := m.scanner.Run(sess.Context(), sess.Page, req, func(fn func(*Job)) {
		if err := whileRunning(fn); err != nil && !errors.Is(err, errSkipUpdate) {
			log.Warn("progress not recorded", "error", err)
		}
	})
	m.sessions.Touch(req.JobID)

	if err != nil {
		m.metrics.BatchesFailed.Add(1)
		m.setSessionStatus(req.TestSessionID, types.StatusFailed)
		if sess.Context().Err() != nil {
			log.Info("batch stopped, session closed", "saved", res.Saved)
			if uerr := whileRunning(func(j *Job) {
				j.Status = types.StatusFailed
				j.ErrorMessage = SessionClosedMessage
			}); uerr != nil && !errors.Is(uerr, errSkipUpdate) {
				log.Warn("failure not recorded", "error", uerr)
			}
			return
		}
		log.Error("batch failed", "error", err, "saved", res.Saved)
		if uerr := whileRunning(func(j *Job) {
			j.Status = types.StatusFailed
			j.ErrorMessage = err.Error()
		}); uerr != nil && !errors.Is(uerr, errSkipUpdate) {
			log.Warn("failure not recorded", "error", uerr)
		}
		return
	}

	m.metrics.BatchesCompleted.Add(1)
	m.setSessionStatus(req.TestSessionID, types.StatusDone)
	if err := whileRunning(func(j *Job) {
		j.Progress = 100
		j.Status = types.StatusWaitingForInput
		j.Step = StepWaitingForUser
	}); err != nil && !errors.Is(err, errSkipUpdate) {
		log.Warn("completion not recorded", "error", err)
	}
}

func (m *Manager) setSessionStatus(id string, status types.Status) {
	if err := m.store.UpdateSessionStatus(context.Background(), id, status); err != nil {
		m.logger.Warn("test session status not updated", "test_id", id, "status", status, "error", err)
	}
}

// Cleanup closes the job's browser and forgets the job.
func (m *Manager) Cleanup(ctx context.Context, jobID string) error {
	m.sessions.Close(jobID)
	return m.jobs.Delete(ctx, jobID)
}

// Shutdown closes every browser and waits for background work, or until
// ctx ends.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.baseCancel()
	m.sessions.CloseAll()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every background task has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}
