package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

const (
	optionRowSelector   = ".answer-option, .radio, .checkbox, label"
	choiceInputSelector = `input[type="radio"], input[type="checkbox"]`
	containerSelector   = "div, li, tr"
)

var greenColors = map[string]bool{
	"green":           true,
	"rgb(0,128,0)":    true,
	"rgba(0,128,0,1)": true,
	"#008000":         true,
	"#080":            true,
}

// ChoiceStrategies returns the choice cascade. The bare-inputs tier only
// runs when no option row with an input exists on the page.
func ChoiceStrategies() Cascade[[]types.ExtractedChoice] {
	return Cascade[[]types.ExtractedChoice]{
		{Name: "option-rows", Fn: optionRows},
		{Name: "bare-inputs", Fn: bareInputs},
	}
}

func optionRows(doc *goquery.Document) ([]types.ExtractedChoice, bool) {
	var choices []types.ExtractedChoice
	doc.Find(optionRowSelector).Each(func(_ int, row *goquery.Selection) {
		input := row.Find(choiceInputSelector).First()
		if input.Length() == 0 {
			return
		}
		choices = append(choices, types.ExtractedChoice{
			Text:      VisibleText(row),
			IsCorrect: isCorrect(row, input),
		})
	})
	return choices, len(choices) > 0
}

func bareInputs(doc *goquery.Document) ([]types.ExtractedChoice, bool) {
	var choices []types.ExtractedChoice
	doc.Find(choiceInputSelector).Each(func(_ int, input *goquery.Selection) {
		container := input.Closest(containerSelector)
		if container.Length() == 0 {
			container = input.Parent()
		}
		if container.Length() == 0 {
			return
		}
		choices = append(choices, types.ExtractedChoice{
			Text:      VisibleText(container),
			IsCorrect: isCorrect(container, input),
		})
	})
	return choices, len(choices) > 0
}

// isCorrect applies the correctness markers used by the site: a success
// class on the row or inside it, an inline green color, a checked input,
// or a danger-styled radio that is checked.
func isCorrect(row, input *goquery.Selection) bool {
	if row.HasClass("text-success") || row.Find(".text-success").Length() > 0 {
		return true
	}
	if greenColors[inlineColor(row)] {
		return true
	}
	// A radio-danger row only counts when its input is checked, so the
	// checked test covers it.
	_, checked := input.Attr("checked")
	return checked
}

// inlineColor returns the normalised value of the color declaration in the
// element's style attribute, or "".
func inlineColor(s *goquery.Selection) string {
	style, ok := s.Attr("style")
	if !ok {
		return ""
	}
	var color string
	for _, decl := range strings.Split(style, ";") {
		name, value, found := strings.Cut(decl, ":")
		if !found || strings.ToLower(strings.TrimSpace(name)) != "color" {
			continue
		}
		value = strings.ToLower(value)
		value = strings.ReplaceAll(value, "!important", "")
		color = strings.Join(strings.Fields(value), "")
	}
	return color
}
