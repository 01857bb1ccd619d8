package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrJobNotFound     = errors.New("job not found")
	ErrSessionNotFound = errors.New("session not found or expired")
	ErrScanInProgress  = errors.New("a scan is already running for this job")
	ErrNotFound        = errors.New("record not found")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrPageClosed      = errors.New("page is closed")
	ErrNoMatch         = errors.New("no element matched")
)

// BrowserError wraps errors raised while driving a browser page.
type BrowserError struct {
	Op     string
	Target string
	Err    error
}

func (e *BrowserError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("browser %s %q: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("browser %s: %v", e.Op, e.Err)
}

func (e *BrowserError) Unwrap() error { return e.Err }

// ExtractError wraps errors that occur while extracting a question page.
type ExtractError struct {
	URL string
	Err error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract error for %s: %v", e.URL, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during persistence.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the item pipeline.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
