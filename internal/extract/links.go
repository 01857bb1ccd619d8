package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

// LinkEnumerator collects question links from a review page snapshot.
type LinkEnumerator struct {
	containerID string
	linkClass   string
	origin      *url.URL
}

// NewLinkEnumerator creates an enumerator for the container with the given
// id, collecting anchors that carry linkClass. Relative links resolve
// against origin.
func NewLinkEnumerator(containerID, linkClass, origin string) (*LinkEnumerator, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("origin %q must be absolute", origin)
	}
	return &LinkEnumerator{
		containerID: containerID,
		linkClass:   linkClass,
		origin:      u,
	}, nil
}

// Hrefs returns the raw href values of every matching anchor inside the
// first container, in document order. Empty values are dropped and
// duplicates are kept. A page without the container yields no links.
func (le *LinkEnumerator) Hrefs(src string) ([]string, error) {
	doc, err := htmlquery.Parse(strings.NewReader(src))
	if err != nil {
		return nil, &types.ExtractError{URL: "review page", Err: err}
	}

	container, err := htmlquery.Query(doc, fmt.Sprintf("//*[@id=%s]", xpathLiteral(le.containerID)))
	if err != nil {
		return nil, fmt.Errorf("container xpath: %w", err)
	}
	if container == nil {
		return nil, nil
	}

	anchors, err := htmlquery.QueryAll(container, fmt.Sprintf(
		".//a[contains(concat(' ', normalize-space(@class), ' '), %s)]",
		xpathLiteral(" "+le.linkClass+" "),
	))
	if err != nil {
		return nil, fmt.Errorf("link xpath: %w", err)
	}

	var hrefs []string
	for _, a := range anchors {
		if href := htmlquery.SelectAttr(a, "href"); href != "" {
			hrefs = append(hrefs, href)
		}
	}
	return hrefs, nil
}

// Links returns Hrefs resolved to absolute URLs.
func (le *LinkEnumerator) Links(src string) ([]string, error) {
	hrefs, err := le.Hrefs(src)
	if err != nil {
		return nil, err
	}
	links := make([]string, 0, len(hrefs))
	for _, h := range hrefs {
		links = append(links, le.Resolve(h))
	}
	return links, nil
}

// Resolve leaves links starting with "http" untouched and resolves the
// rest against the configured origin.
func (le *LinkEnumerator) Resolve(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return strings.TrimRight(le.origin.String(), "/") + href
	}
	return le.origin.ResolveReference(ref).String()
}

// Origin returns the origin used for relative links.
func (le *LinkEnumerator) Origin() string { return le.origin.String() }

// xpathLiteral quotes s for use inside an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
