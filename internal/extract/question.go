package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	stepMarker = "Step by Step"
	noteMarker = "Note:"

	// headerSelector is the set of heading-like elements searched for markers.
	headerSelector = "h3, h4, .card-title, strong, b"

	cardSelector     = ".card, .panel, .box"
	cardBodySelector = ".card-body, .panel-body, .box-body"

	questionContentSelector = ".question-content, .card-body h4, .q-text"
)

// QuestionStrategies returns the question text cascade.
func QuestionStrategies() Cascade[string] {
	return Cascade[string]{
		{Name: "step-by-step", Fn: stepByStepQuestion},
		{Name: "question-content", Fn: questionContent},
		{Name: "page-text", Fn: pageText},
	}
}

// findHeader returns the first heading-like element whose text contains marker.
func findHeader(doc *goquery.Document, marker string) *goquery.Selection {
	var found *goquery.Selection
	doc.Find(headerSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(VisibleText(s), marker) {
			found = s
			return false
		}
		return true
	})
	return found
}

func stepByStepQuestion(doc *goquery.Document) (string, bool) {
	header := findHeader(doc, stepMarker)
	if header == nil {
		return "", false
	}

	var text string
	body := header.Closest(cardSelector).Find(cardBodySelector).First()
	if body.Length() > 0 {
		text = strings.Replace(VisibleText(body), stepMarker, "", 1)
	} else {
		var b strings.Builder
		for sib := header.Next(); sib.Length() > 0; sib = sib.Next() {
			if sib.Is("p, div") {
				b.WriteString(VisibleText(sib))
				b.WriteByte('\n')
			}
		}
		text = b.String()
	}

	text = strings.TrimSpace(text)
	return text, text != ""
}

func questionContent(doc *goquery.Document) (string, bool) {
	el := doc.Find(questionContentSelector).First()
	if el.Length() == 0 {
		return "", false
	}
	text := strings.TrimSpace(VisibleText(el))
	return text, text != ""
}

func pageText(doc *goquery.Document) (string, bool) {
	text := strings.TrimSpace(VisibleText(doc.Find("body")))
	return text, text != ""
}
