package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/QuizGoat/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestSetupLoggerToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizgoat.log")
	logger, closer, err := setupLogger(config.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("hello", "job_id", "j1")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "j1", line["job_id"])
}

func TestExtractCommand(t *testing.T) {
	page := filepath.Join(t.TempDir(), "q.html")
	require.NoError(t, os.WriteFile(page, []byte(`<html><body>
  <div class="question-content">  Pick one  </div>
  <label><input type="radio"> first</label>
  <label class="text-success"><input type="radio"> second</label>
</body></html>`), 0o644))

	cmd := extractCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{page, "--labels", "--url", "https://quiz.test/q/1"})
	require.NoError(t, cmd.Execute())

	var q struct {
		URL          string `json:"url"`
		QuestionText string `json:"questionText"`
		Choices      []struct {
			Label     string `json:"label"`
			Text      string `json:"text"`
			IsCorrect bool   `json:"isCorrect"`
		} `json:"choices"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &q), out.String())
	assert.Equal(t, "https://quiz.test/q/1", q.URL)
	assert.Equal(t, "Pick one", q.QuestionText)
	require.Len(t, q.Choices, 2)
	assert.Equal(t, "B", q.Choices[1].Label)
	assert.True(t, q.Choices[1].IsCorrect)
}

func TestVersionCommand(t *testing.T) {
	cmd := versionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "QuizGoat "+config.Version)
}
