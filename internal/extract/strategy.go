package extract

import "github.com/PuerkitoBio/goquery"

// Strategy is one named heuristic for pulling a field out of a page.
// Fn reports false when the heuristic found nothing usable.
type Strategy[T any] struct {
	Name string
	Fn   func(doc *goquery.Document) (T, bool)
}

// Cascade is an ordered list of strategies; the first match wins.
type Cascade[T any] []Strategy[T]

// Run tries each strategy in order and returns the first match together
// with the winning strategy's name. When nothing matches it returns the
// zero value, an empty name and false.
func (c Cascade[T]) Run(doc *goquery.Document) (T, string, bool) {
	for _, s := range c {
		if v, ok := s.Fn(doc); ok {
			return v, s.Name, true
		}
	}
	var zero T
	return zero, "", false
}

// Names lists the strategy names in evaluation order.
func (c Cascade[T]) Names() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name
	}
	return names
}
