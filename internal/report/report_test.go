package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/QuizGoat/internal/browser"
	"github.com/IshaanNene/QuizGoat/internal/storage"
	"github.com/IshaanNene/QuizGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func seedDocument(t *testing.T) (storage.Store, string) {
	t.Helper()
	store := storage.NewMemoryStore(testLogger)
	ctx := context.Background()

	ts := &types.TestSession{
		SourceTestURL: "https://quiz.test/review/9",
		Topic:         "Risk",
		TestName:      "Mock 3",
		CreatedAt:     time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateSession(ctx, ts))

	gw := storage.NewGateway(store, testLogger)
	_, err := gw.Save(ctx, ts.ID, 2, &types.ExtractedQuestion{
		QuestionText: "Second <question>",
		Choices:      []types.ExtractedChoice{{Text: "yes", IsCorrect: true}, {Text: "no"}},
	})
	require.NoError(t, err)
	_, err = gw.Save(ctx, ts.ID, 1, &types.ExtractedQuestion{
		QuestionText: "First question",
		Explanation:  "Because.",
		Choices:      []types.ExtractedChoice{{Text: "a"}, {Text: "b", IsCorrect: true}, {Text: "c"}},
	})
	require.NoError(t, err)
	return store, ts.ID
}

func TestLoad(t *testing.T) {
	store, id := seedDocument(t)
	doc, err := Load(context.Background(), store, id)
	require.NoError(t, err)
	require.Len(t, doc.Questions, 2)
	assert.Equal(t, 1, doc.Questions[0].IndexNumber)

	_, err = Load(context.Background(), store, "missing")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestRenderHTML(t *testing.T) {
	store, id := seedDocument(t)
	doc, err := Load(context.Background(), store, id)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, doc, Options{IncludeExplanation: true}))
	out := buf.String()

	assert.Contains(t, out, "Mock 3 - Risk")
	assert.Contains(t, out, "Source: https://quiz.test/review/9")
	assert.Contains(t, out, "Total Questions: 2")
	assert.Contains(t, out, "Date: 2025-03-14")
	assert.Contains(t, out, "Question 1")
	assert.Contains(t, out, "Second &lt;question&gt;", "question text is escaped")
	assert.Contains(t, out, `<div class="choice correct"><div class="choice-indicator"></div><span>b</span></div>`)
	assert.Contains(t, out, "Because.")
	assert.Less(t, strings.Index(out, "First question"), strings.Index(out, "Second"))

	buf.Reset()
	require.NoError(t, RenderHTML(&buf, doc, Options{OnlyCorrect: true}))
	out = buf.String()
	assert.NotContains(t, out, "Because.")
	assert.NotContains(t, out, "<span>a</span>")
	assert.Contains(t, out, "<span>b</span>")
}

func TestRenderHTMLDefaults(t *testing.T) {
	doc := &Document{TestSession: types.TestSession{CreatedAt: time.Now()}}
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, doc, Options{}))
	assert.Contains(t, buf.String(), "Untitled Test")
	assert.Contains(t, buf.String(), "Manual Session")
}

func TestFilename(t *testing.T) {
	now := time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "Mock_3_Risk___Scope_2025-03-14.pdf",
		Filename(types.TestSession{TestName: "Mock 3", Topic: "Risk & Scope"}, now))
	assert.Equal(t, "Test_2025-03-14.pdf", Filename(types.TestSession{}, now))
}

type fakePDF struct{ html string }

func (f *fakePDF) RenderPDF(_ context.Context, html string) ([]byte, error) {
	f.html = html
	return []byte("%PDF-1.4"), nil
}

func TestPDFRendersHTML(t *testing.T) {
	store, id := seedDocument(t)
	doc, _ := Load(context.Background(), store, id)

	r := &fakePDF{}
	data, err := PDF(context.Background(), r, doc, Options{})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
	assert.Contains(t, r.html, "Test Portfolio")
}

func TestExporters(t *testing.T) {
	store, id := seedDocument(t)
	doc, _ := Load(context.Background(), store, id)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, JSONExporter{}.Export(&buf, doc))
		var out map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		assert.Equal(t, "Mock 3", out["testName"])
		assert.Len(t, out["questions"], 2)
	})

	t.Run("jsonl", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, JSONLExporter{}.Export(&buf, doc))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		assert.Len(t, lines, 2)
		assert.Contains(t, lines[0], `"indexNumber":1`)
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, CSVExporter{}.Export(&buf, doc))
		rows, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, csvHeaders, rows[0])
		assert.Equal(t, []string{"1", "First question", "a | b | c", "2", "Because."}, rows[1][:5])
	})

	_, err := NewExporter("xml")
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	store, id := seedDocument(t)
	doc, _ := Load(context.Background(), store, id)

	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	e, err := NewExporter("csv")
	require.NoError(t, err)
	require.NoError(t, WriteFile(path, e, doc, testLogger))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "index,question"))
}

// Needs a real Chromium; set QUIZGOAT_TEST_CHROME=1 to enable.
func TestChromePDFLive(t *testing.T) {
	if os.Getenv("QUIZGOAT_TEST_CHROME") == "" {
		t.Skip("QUIZGOAT_TEST_CHROME not set, skipping live PDF test")
	}
	store, id := seedDocument(t)
	doc, err := Load(context.Background(), store, id)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	data, err := PDF(ctx, NewChromePDF(browser.LaunchOptions{NoSandbox: true}, testLogger), doc, Options{IncludeExplanation: true})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
