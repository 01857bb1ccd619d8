package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Exporter writes a document in one file format.
type Exporter interface {
	Name() string
	Extension() string
	Export(w io.Writer, doc *Document) error
}

// NewExporter returns the exporter for format: json, jsonl or csv.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return JSONExporter{}, nil
	case "jsonl":
		return JSONLExporter{}, nil
	case "csv":
		return CSVExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// --- JSON ---

// JSONExporter writes the session with its questions as one indented object.
type JSONExporter struct{}

func (JSONExporter) Name() string      { return "json" }
func (JSONExporter) Extension() string { return ".json" }

func (JSONExporter) Export(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// --- JSONL ---

// JSONLExporter writes one question per line.
type JSONLExporter struct{}

func (JSONLExporter) Name() string      { return "jsonl" }
func (JSONLExporter) Extension() string { return ".jsonl" }

func (JSONLExporter) Export(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	for _, q := range doc.Questions {
		if err := enc.Encode(q); err != nil {
			return fmt.Errorf("encode JSONL: %w", err)
		}
	}
	return nil
}

// --- CSV ---

// CSVExporter writes one row per question. Choices are joined with " | "
// and the correct column lists the 1-based positions of correct choices.
type CSVExporter struct{}

var csvHeaders = []string{"index", "question", "choices", "correct", "explanation", "hash"}

func (CSVExporter) Name() string      { return "csv" }
func (CSVExporter) Extension() string { return ".csv" }

func (CSVExporter) Export(w io.Writer, doc *Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeaders); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, q := range doc.Questions {
		texts := make([]string, len(q.Choices))
		var correct []string
		for i, c := range q.Choices {
			texts[i] = c.Text
			if c.IsCorrect {
				correct = append(correct, strconv.Itoa(i+1))
			}
		}
		row := []string{
			strconv.Itoa(q.IndexNumber),
			q.QuestionText,
			strings.Join(texts, " | "),
			strings.Join(correct, ","),
			q.Explanation,
			q.Hash,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile exports doc to path, creating parent directories.
func WriteFile(path string, e Exporter, doc *Document, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if err := e.Export(f, doc); err != nil {
		return err
	}
	logger.Info("export written", "format", e.Name(), "path", path, "questions", len(doc.Questions))
	return f.Close()
}
