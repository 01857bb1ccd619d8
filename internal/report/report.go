// Package report turns stored test sessions into documents: an HTML
// portfolio, its PDF rendering and flat JSON, JSONL and CSV exports.
package report

import (
	"context"
	"regexp"
	"time"

	"github.com/IshaanNene/QuizGoat/internal/storage"
	"github.com/IshaanNene/QuizGoat/internal/types"
)

// Document is a test session with its questions in index order.
type Document struct {
	types.TestSession
	Questions []types.Question `json:"questions"`
}

// Load reads session id and its questions from store.
func Load(ctx context.Context, store storage.Store, id string) (*Document, error) {
	ts, err := store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	qs, err := store.ListQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	if qs == nil {
		qs = []types.Question{}
	}
	return &Document{TestSession: *ts, Questions: qs}, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9]`)

// Filename returns the download name of a session's PDF:
// <testName>[_<topic>]_<YYYY-MM-DD>.pdf with every character outside
// [A-Za-z0-9] replaced by an underscore.
func Filename(ts types.TestSession, now time.Time) string {
	name := ts.TestName
	if name == "" {
		name = "Test"
	}
	out := unsafeChars.ReplaceAllString(name, "_")
	if ts.Topic != "" {
		out += "_" + unsafeChars.ReplaceAllString(ts.Topic, "_")
	}
	return out + "_" + now.UTC().Format("2006-01-02") + ".pdf"
}
