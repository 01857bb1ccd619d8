package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExplanationStrategies returns the explanation cascade.
func ExplanationStrategies() Cascade[string] {
	return Cascade[string]{
		{Name: "note-block", Fn: noteBlock},
	}
}

func noteBlock(doc *goquery.Document) (string, bool) {
	header := findHeader(doc, noteMarker)
	if header == nil {
		return "", false
	}
	container := header.Closest("div, p")
	if container.Length() == 0 {
		return "", false
	}
	text := strings.TrimSpace(strings.Replace(VisibleText(container), noteMarker, "", 1))
	return text, text != ""
}
