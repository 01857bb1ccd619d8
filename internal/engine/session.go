package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/QuizGoat/internal/browser"
	"github.com/IshaanNene/QuizGoat/internal/observability"
)

// OpenOptions configures a new session.
type OpenOptions struct {
	Launch       browser.LaunchOptions
	MaxQuestions int
}

// Session is the live browser attached to one job.
type Session struct {
	JobID        string
	Browser      browser.Browser
	Page         browser.Page
	MaxQuestions int
	CreatedAt    time.Time

	ctx          context.Context
	cancel       context.CancelFunc
	scanning     atomic.Bool
	lastActivity atomic.Int64
}

// Context is cancelled when the session is closed.
func (s *Session) Context() context.Context { return s.ctx }

// LastActivity returns when the session was last used.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *Session) touch() { s.lastActivity.Store(time.Now().UnixNano()) }

func (s *Session) beginScan() bool { return s.scanning.CompareAndSwap(false, true) }
func (s *Session) endScan()        { s.scanning.Store(false) }

// SessionManager maps job ids to live browser sessions.
type SessionManager struct {
	launcher browser.Launcher
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	pending  map[string]*Reservation
}

// NewSessionManager creates a manager that launches browsers with launcher.
func NewSessionManager(launcher browser.Launcher, metrics *observability.Metrics, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		launcher: launcher,
		metrics:  metrics,
		logger:   logger.With("component", "sessions"),
		sessions: make(map[string]*Session),
		pending:  make(map[string]*Reservation),
	}
}

// Reservation is a session slot whose browser has not been launched yet.
// Closing the job cancels it.
type Reservation struct {
	m      *SessionManager
	jobID  string
	ctx    context.Context
	cancel context.CancelFunc
}

// Reserve claims the slot of jobID. Any earlier pending launch for the same
// job is aborted.
func (m *SessionManager) Reserve(ctx context.Context, jobID string) *Reservation {
	sctx, cancel := context.WithCancel(ctx)
	r := &Reservation{m: m, jobID: jobID, ctx: sctx, cancel: cancel}

	m.mu.Lock()
	if prev, ok := m.pending[jobID]; ok {
		prev.cancel()
	}
	m.pending[jobID] = r
	m.mu.Unlock()
	return r
}

// Open launches a browser for jobID and registers it, closing any session
// the job already had.
func (m *SessionManager) Open(ctx context.Context, jobID string, opts OpenOptions) (*Session, error) {
	return m.Reserve(ctx, jobID).Open(opts)
}

// Open launches the browser and turns the reservation into a live session.
func (r *Reservation) Open(opts OpenOptions) (*Session, error) {
	m := r.m
	b, err := m.launcher.Launch(r.ctx, opts.Launch)
	if err != nil {
		r.release()
		return nil, err
	}
	page, err := b.NewPage(r.ctx)
	if err != nil {
		r.release()
		b.Close()
		return nil, err
	}

	s := &Session{
		JobID:        r.jobID,
		Browser:      b,
		Page:         page,
		MaxQuestions: opts.MaxQuestions,
		CreatedAt:    time.Now(),
		ctx:          r.ctx,
		cancel:       r.cancel,
	}
	s.touch()

	log := m.logger.With("job_id", r.jobID)
	page.OnDialog(func(d browser.Dialog) bool {
		log.Info("accepting dialog", "type", d.Type, "message", d.Message)
		m.metrics.DialogsAccepted.Add(1)
		return true
	})

	m.mu.Lock()
	if r.ctx.Err() != nil {
		// Closed while launching.
		m.mu.Unlock()
		r.release()
		b.Close()
		return nil, r.ctx.Err()
	}
	if m.pending[r.jobID] == r {
		delete(m.pending, r.jobID)
	}
	prev := m.sessions[r.jobID]
	m.sessions[r.jobID] = s
	m.mu.Unlock()

	if prev != nil {
		m.shutdown(prev)
	} else {
		m.metrics.ActiveSessions.Add(1)
	}
	log.Info("session opened", "headless", opts.Launch.Headless)
	return s, nil
}

func (r *Reservation) release() {
	r.cancel()
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.pending[r.jobID] == r {
		delete(r.m.pending, r.jobID)
	}
}

// Get returns the live session of jobID.
func (m *SessionManager) Get(jobID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[jobID]
	return s, ok
}

// Touch records activity on jobID's session.
func (m *SessionManager) Touch(jobID string) {
	if s, ok := m.Get(jobID); ok {
		s.touch()
	}
}

// Close tears down jobID's session, or aborts its launch. Unknown ids are
// ignored.
func (m *SessionManager) Close(jobID string) {
	m.mu.Lock()
	if r, ok := m.pending[jobID]; ok {
		r.cancel()
		delete(m.pending, jobID)
	}
	s, ok := m.sessions[jobID]
	delete(m.sessions, jobID)
	m.mu.Unlock()

	if !ok {
		return
	}
	m.shutdown(s)
	m.metrics.ActiveSessions.Add(-1)
	m.logger.Info("session closed", "job_id", jobID)
}

func (m *SessionManager) shutdown(s *Session) {
	s.cancel()
	if err := s.Browser.Close(); err != nil {
		m.logger.Debug("browser close failed", "job_id", s.JobID, "error", err)
	}
}

// CloseAll closes every session and aborts pending launches.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions)+len(m.pending))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	for id := range m.pending {
		if _, ok := m.sessions[id]; !ok {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Close(id)
	}
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
