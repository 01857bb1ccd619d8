package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IshaanNene/QuizGoat/internal/browser"
	"github.com/IshaanNene/QuizGoat/internal/config"
	"github.com/IshaanNene/QuizGoat/internal/observability"
)

// LoginOutcome is what the page did after the form was submitted.
type LoginOutcome string

const (
	LoginNavigated LoginOutcome = "navigated"
	LoginConflict  LoginOutcome = "conflict"
	LoginRejected  LoginOutcome = "rejected"
	LoginUnknown   LoginOutcome = "unknown"
)

// ErrNoCandidate is returned when none of the configured selectors matched.
var ErrNoCandidate = errors.New("no matching form element")

// Login fills and submits a login form using ordered selector candidates.
// It is best effort: callers log its errors and carry on.
type Login struct {
	cfg     config.LoginConfig
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewLogin creates a Login from cfg.
func NewLogin(cfg config.LoginConfig, metrics *observability.Metrics, logger *slog.Logger) *Login {
	return &Login{
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.With("component", "login"),
	}
}

// Run fills username and password, submits, and waits for the first sign of
// how the site reacted. On a session conflict it submits once more.
func (l *Login) Run(ctx context.Context, page browser.Page, username, password string) (LoginOutcome, error) {
	l.metrics.LoginAttempts.Add(1)

	if _, err := l.fill(ctx, page, l.cfg.UsernameSelectors, username); err != nil {
		return LoginUnknown, fmt.Errorf("username field: %w", err)
	}
	if _, err := l.fill(ctx, page, l.cfg.PasswordSelectors, password); err != nil {
		return LoginUnknown, fmt.Errorf("password field: %w", err)
	}

	raceCtx, cancelRace := context.WithCancel(ctx)
	defer cancelRace()

	navigated := page.WaitNavigation(raceCtx, l.cfg.NavigationTimeout)
	submit, err := l.click(ctx, page, l.cfg.SubmitSelectors)
	if err != nil {
		return LoginUnknown, fmt.Errorf("submit button: %w", err)
	}

	outcome := l.race(raceCtx, page, navigated)
	cancelRace()
	l.logger.Debug("login submitted", "submit", submit, "outcome", outcome)

	if outcome != LoginConflict {
		return outcome, nil
	}

	l.metrics.LoginConflicts.Add(1)
	l.logger.Info("login conflict detected, submitting again")
	if err := sleepCtx(ctx, l.cfg.ConflictPause); err != nil {
		return outcome, err
	}
	resubmitted := page.WaitNavigation(ctx, l.cfg.ResubmitNavTimeout)
	if err := page.Click(ctx, submit, l.cfg.FieldTimeout); err != nil {
		return outcome, fmt.Errorf("resubmit: %w", err)
	}
	if err := resubmitted(); err != nil {
		return outcome, fmt.Errorf("resubmit navigation: %w", err)
	}
	return outcome, nil
}

// race waits for navigation, the conflict text and the error indicator
// concurrently and returns whichever shows up first.
func (l *Login) race(ctx context.Context, page browser.Page, navigated func() error) LoginOutcome {
	results := make(chan LoginOutcome, 3)
	watch := func(outcome LoginOutcome, wait func() error) {
		if err := wait(); err != nil {
			results <- ""
			return
		}
		results <- outcome
	}

	go watch(LoginNavigated, navigated)
	go watch(LoginConflict, func() error {
		return page.WaitFor(ctx, "text="+l.cfg.ConflictText, l.cfg.IndicatorTimeout)
	})
	go watch(LoginRejected, func() error {
		return page.WaitFor(ctx, l.cfg.ErrorSelector, l.cfg.IndicatorTimeout)
	})

	for i := 0; i < 3; i++ {
		if outcome := <-results; outcome != "" {
			return outcome
		}
	}
	return LoginUnknown
}

// fill types value into the first candidate that appears.
func (l *Login) fill(ctx context.Context, page browser.Page, selectors []string, value string) (string, error) {
	var lastErr error
	for _, sel := range candidates(selectors) {
		if err := page.Fill(ctx, sel, value, l.cfg.FieldTimeout); err != nil {
			lastErr = err
			continue
		}
		return sel, nil
	}
	return "", noCandidate(selectors, lastErr)
}

// click clicks the first candidate that appears and returns its selector.
func (l *Login) click(ctx context.Context, page browser.Page, selectors []string) (string, error) {
	var lastErr error
	for _, sel := range candidates(selectors) {
		if err := page.Click(ctx, sel, l.cfg.FieldTimeout); err != nil {
			lastErr = err
			continue
		}
		return sel, nil
	}
	return "", noCandidate(selectors, lastErr)
}

func noCandidate(selectors []string, err error) error {
	if err == nil {
		return ErrNoCandidate
	}
	return fmt.Errorf("%w among %q: %v", ErrNoCandidate, selectors, err)
}

// candidates merges plain CSS selectors into one selector list, so a single
// wait covers all of them and the first match in document order wins. Text
// selectors cannot be merged and are tried afterwards, one by one.
func candidates(selectors []string) []string {
	var css, text []string
	for _, sel := range selectors {
		if s := browser.ParseSelector(sel); s.Text != "" {
			text = append(text, sel)
		} else {
			css = append(css, sel)
		}
	}
	var out []string
	if len(css) > 0 {
		out = append(out, strings.Join(css, ", "))
	}
	return append(out, text...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
