package browser

import "strings"

// Selector is a parsed page selector.
type Selector struct {
	// CSS is the CSS part. Empty for pure text selectors.
	CSS string
	// Text, when set, must be contained in the matched element's text.
	Text string
}

// TextOnly reports whether the selector matches by text alone.
func (s Selector) TextOnly() bool { return s.CSS == "" && s.Text != "" }

// ParseSelector understands plain CSS, `text="..."` and
// `css:has-text("...")`.
func ParseSelector(raw string) Selector {
	raw = strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(raw, "text="); ok {
		return Selector{Text: unquote(rest)}
	}
	if i := strings.Index(raw, ":has-text("); i >= 0 && strings.HasSuffix(raw, ")") {
		return Selector{
			CSS:  strings.TrimSpace(raw[:i]),
			Text: unquote(raw[i+len(":has-text(") : len(raw)-1]),
		}
	}
	return Selector{CSS: raw}
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
