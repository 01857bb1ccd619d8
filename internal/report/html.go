package report

import (
	"html/template"
	"io"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

// Options controls what the portfolio shows.
type Options struct {
	IncludeExplanation bool
	OnlyCorrect        bool
}

type htmlQuestion struct {
	Index       int
	Text        string
	Choices     []types.Choice
	Explanation string
}

type htmlData struct {
	Title     string
	Subtitle  string
	Source    string
	Count     int
	Date      string
	Questions []htmlQuestion
}

// RenderHTML writes the printable portfolio of doc.
func RenderHTML(w io.Writer, doc *Document, opts Options) error {
	data := htmlData{
		Title:    "Test Portfolio",
		Subtitle: doc.TestName,
		Source:   doc.SourceTestURL,
		Count:    len(doc.Questions),
		Date:     doc.CreatedAt.Format("2006-01-02"),
	}
	if data.Subtitle == "" {
		data.Subtitle = "Untitled Test"
	}
	if doc.Topic != "" {
		data.Subtitle += " - " + doc.Topic
	}
	if data.Source == "" {
		data.Source = "Manual Session"
	}

	for _, q := range doc.Questions {
		hq := htmlQuestion{Index: q.IndexNumber, Text: q.QuestionText}
		if opts.IncludeExplanation {
			hq.Explanation = q.Explanation
		}
		if opts.OnlyCorrect {
			hq.Choices = q.CorrectChoices()
		} else {
			hq.Choices = q.Choices
		}
		data.Questions = append(data.Questions, hq)
	}

	return portfolio.Execute(w, data)
}

var portfolio = template.Must(template.New("portfolio").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: 'Inter', sans-serif; padding: 40px; background: white; color: black; line-height: 1.5; }
  .header { border-bottom: 2px solid #eee; margin-bottom: 30px; padding-bottom: 20px; }
  .title { font-size: 28px; font-weight: 800; margin-bottom: 5px; }
  .subtitle { font-size: 18px; color: #444; margin-bottom: 15px; font-weight: 600; }
  .metadata { color: #666; font-size: 12px; }
  .question-card { break-inside: avoid; margin-bottom: 40px; border-top: 1px solid #eee; padding-top: 20px; }
  .question-header { font-weight: 700; margin-bottom: 12px; font-size: 16px; }
  .question-text { margin-bottom: 20px; white-space: pre-wrap; color: #333; }
  .choice { margin: 8px 0; padding: 4px 0; display: flex; align-items: flex-start; gap: 10px; }
  .choice-indicator { flex-shrink: 0; width: 14px; height: 14px; border: 1px solid #ccc; border-radius: 50%; margin-top: 3px; }
  .correct { font-weight: 800; }
  .correct .choice-indicator { background-color: #000; border-color: #000; }
  .explanation { margin-top: 15px; padding: 12px; background: #f9f9f9; font-size: 13px; border-radius: 4px; border-left: 3px solid #ddd; color: #555; }
  .explanation-title { font-weight: 700; color: #333; margin-right: 5px; }
</style>
</head>
<body>
  <div class="header">
    <div class="title">{{.Title}}</div>
    <div class="subtitle">{{.Subtitle}}</div>
    <div class="metadata">Source: {{.Source}}<br>Total Questions: {{.Count}} &bull; Date: {{.Date}}</div>
  </div>
{{range .Questions}}
  <div class="question-card">
    <div class="question-header">Question {{.Index}}</div>
    <div class="question-text">{{.Text}}</div>
    <div class="choices">
    {{- range .Choices}}
      <div class="choice{{if .IsCorrect}} correct{{end}}"><div class="choice-indicator"></div><span>{{.Text}}</span></div>
    {{- end}}
    </div>
    {{- if .Explanation}}
    <div class="explanation"><span class="explanation-title">Explanation:</span>{{.Explanation}}</div>
    {{- end}}
  </div>
{{end}}
</body>
</html>
`))
