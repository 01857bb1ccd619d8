// Package engine drives crawl jobs: it owns the job registry, the per-job
// browser sessions, the login heuristic and the review-page batch driver.
package engine

import (
	"errors"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

// Job steps reported to clients.
const (
	StepInit                = "INIT"
	StepWaitingForUser      = "WAITING_FOR_USER"
	StepScanningReviewPage  = "SCANNING_REVIEW_PAGE"
	StepExtractingQuestions = "EXTRACTING_QUESTIONS"
)

// CancelledMessage is the error message a cancelled job carries.
const CancelledMessage = "Cancelled by user"

// SessionClosedMessage marks a job whose browser went away mid-batch
// without an explicit cancel.
const SessionClosedMessage = "Browser session closed"

// errSkipUpdate aborts a JobStore.Update without writing.
var errSkipUpdate = errors.New("engine: update skipped")

// Job is the volatile progress record of one crawl.
type Job struct {
	JobID          string       `json:"jobId"`
	TestID         string       `json:"testId,omitempty"`
	Status         types.Status `json:"status"`
	Progress       int          `json:"progress"`
	Step           string       `json:"step"`
	TotalQuestions int          `json:"totalQuestions"`
	ErrorMessage   string       `json:"errorMessage,omitempty"`
}

// batchProgress maps done of total items onto the 5..95 band.
func batchProgress(done, total int) int {
	if total <= 0 {
		return 5
	}
	return done*90/total + 5
}
