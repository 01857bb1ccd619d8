// Package browsertest provides an in-memory browser for tests. Pages are
// HTML fixtures keyed by URL; selectors are evaluated with goquery against
// the current document.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/QuizGoat/internal/browser"
	"github.com/IshaanNene/QuizGoat/internal/types"
)

const pollInterval = 2 * time.Millisecond

// ClickAction runs when a registered selector is clicked.
type ClickAction func(p *Page)

// GoTo navigates the page to url.
func GoTo(url string) ClickAction {
	return func(p *Page) { p.load(url) }
}

// Replace swaps the current document without a navigation.
func Replace(html string) ClickAction {
	return func(p *Page) {
		p.mu.Lock()
		p.html = html
		p.mu.Unlock()
	}
}

// Site is the fixture set shared by every page of a fake browser.
type Site struct {
	mu        sync.Mutex
	pages     map[string]string
	navErrors map[string]error
	clicks    map[string]ClickAction
	navDelay  time.Duration
}

// NewSite creates an empty fixture set.
func NewSite() *Site {
	return &Site{
		pages:     make(map[string]string),
		navErrors: make(map[string]error),
		clicks:    make(map[string]ClickAction),
	}
}

// Page registers html under url.
func (s *Site) Page(url, html string) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[url] = html
	return s
}

// FailNavigation makes navigating to url return err.
func (s *Site) FailNavigation(url string, err error) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navErrors[url] = err
	return s
}

// OnClick registers an action for a selector, matched verbatim.
func (s *Site) OnClick(selector string, action ClickAction) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks[selector] = action
	return s
}

// NavigationDelay makes every navigation take d, honouring cancellation.
func (s *Site) NavigationDelay(d time.Duration) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navDelay = d
	return s
}

func (s *Site) lookup(url string) (string, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.navErrors[url]; ok {
		return "", s.navDelay, err
	}
	html, ok := s.pages[url]
	if !ok {
		html = "<html><body><h1>404</h1></body></html>"
	}
	return html, s.navDelay, nil
}

func (s *Site) clickAction(selector string) ClickAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clicks[selector]
}

// Launcher is a browser.Launcher backed by a Site.
type Launcher struct {
	Site *Site

	// LaunchErr, when set, is returned by every Launch.
	LaunchErr error
	// Gate, when set, makes Launch block until it is closed or ctx ends.
	Gate chan struct{}

	mu       sync.Mutex
	browsers []*Browser
}

// NewLauncher creates a fake launcher over site.
func NewLauncher(site *Site) *Launcher {
	return &Launcher{Site: site}
}

func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	if l.Gate != nil {
		select {
		case <-l.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	b := &Browser{site: l.Site, opts: opts}
	l.mu.Lock()
	l.browsers = append(l.browsers, b)
	l.mu.Unlock()
	return b, nil
}

// Launches returns how many browsers were started.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.browsers)
}

// LastPage returns the first page of the most recently launched browser.
func (l *Launcher) LastPage() *Page {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.browsers) == 0 {
		return nil
	}
	return l.browsers[len(l.browsers)-1].firstPage()
}

// LastBrowser returns the most recently launched browser.
func (l *Launcher) LastBrowser() *Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.browsers) == 0 {
		return nil
	}
	return l.browsers[len(l.browsers)-1]
}

// Browser is a fake browser instance.
type Browser struct {
	site *Site
	opts browser.LaunchOptions

	mu     sync.Mutex
	pages  []*Page
	closed bool
}

// Options returns the options the browser was launched with.
func (b *Browser) Options() browser.LaunchOptions { return b.opts }

func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, types.ErrPageClosed
	}
	p := &Page{site: b.site, browser: b, url: "about:blank", html: "<html><body></body></html>"}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Closed reports whether Close was called.
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Browser) firstPage() *Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pages) == 0 {
		return nil
	}
	return b.pages[0]
}

// Page is a fake tab.
type Page struct {
	site    *Site
	browser *Browser

	mu          sync.Mutex
	url         string
	html        string
	navCount    int
	navigations []string
	clicks      []string
	fills       map[string]string
	dialog      browser.DialogHandler
}

// SetContent replaces the current document and URL as if the user had
// navigated there by hand.
func (p *Page) SetContent(url, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.html = html
	p.navCount++
}

// Navigations lists every URL passed to Navigate.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Clicks lists every selector successfully clicked.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Filled returns the value typed into selector.
func (p *Page) Filled(selector string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.fills[selector]
	return v, ok
}

// FireDialog delivers a dialog to the subscribed handler and reports
// whether it was accepted. Without a subscriber the dialog is dismissed.
func (p *Page) FireDialog(d browser.Dialog) bool {
	p.mu.Lock()
	h := p.dialog
	p.mu.Unlock()
	if h == nil {
		return false
	}
	return h(d)
}

func (p *Page) closed() bool { return p.browser.Closed() }

func (p *Page) load(url string) {
	html, _, _ := p.site.lookup(url)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.html = html
	p.navCount++
}

func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if p.closed() {
		return &types.BrowserError{Op: "navigate", Target: url, Err: types.ErrPageClosed}
	}
	p.mu.Lock()
	p.navigations = append(p.navigations, url)
	p.mu.Unlock()

	html, delay, navErr := p.site.lookup(url)
	if delay > 0 {
		if delay > timeout {
			delay = timeout
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &types.BrowserError{Op: "navigate", Target: url, Err: ctx.Err()}
		}
	}
	if p.closed() {
		return &types.BrowserError{Op: "navigate", Target: url, Err: types.ErrPageClosed}
	}
	if navErr != nil {
		return &types.BrowserError{Op: "navigate", Target: url, Err: navErr}
	}

	p.mu.Lock()
	p.url = url
	p.html = html
	p.navCount++
	p.mu.Unlock()
	return nil
}

func (p *Page) Evaluate(ctx context.Context, script string) ([]byte, error) {
	if p.closed() {
		return nil, &types.BrowserError{Op: "evaluate", Err: types.ErrPageClosed}
	}
	if script != browser.OuterHTMLScript {
		return nil, &types.BrowserError{Op: "evaluate", Err: errors.New("script not supported by fake page")}
	}
	p.mu.Lock()
	html := p.html
	p.mu.Unlock()
	return json.Marshal(html)
}

func (p *Page) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := p.WaitFor(ctx, selector, timeout); err != nil {
		return &types.BrowserError{Op: "click", Target: selector, Err: errors.Unwrap(err)}
	}
	p.mu.Lock()
	p.clicks = append(p.clicks, selector)
	p.mu.Unlock()

	if action := p.site.clickAction(selector); action != nil {
		action(p)
	}
	return nil
}

func (p *Page) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	if err := p.WaitFor(ctx, selector, timeout); err != nil {
		return &types.BrowserError{Op: "fill", Target: selector, Err: errors.Unwrap(err)}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fills == nil {
		p.fills = make(map[string]string)
	}
	p.fills[selector] = value
	return nil
}

func (p *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if p.closed() {
			return &types.BrowserError{Op: "wait for", Target: selector, Err: types.ErrPageClosed}
		}
		found, err := p.matches(selector)
		if err != nil {
			return &types.BrowserError{Op: "wait for", Target: selector, Err: err}
		}
		if found {
			return nil
		}
		select {
		case <-time.After(pollInterval):
		case <-deadline.C:
			return &types.BrowserError{Op: "wait for", Target: selector, Err: context.DeadlineExceeded}
		case <-ctx.Done():
			return &types.BrowserError{Op: "wait for", Target: selector, Err: ctx.Err()}
		}
	}
}

func (p *Page) WaitNavigation(ctx context.Context, timeout time.Duration) func() error {
	p.mu.Lock()
	start := p.navCount
	p.mu.Unlock()

	return func() error {
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()
		for {
			p.mu.Lock()
			n := p.navCount
			p.mu.Unlock()
			if n > start {
				return nil
			}
			select {
			case <-time.After(pollInterval):
			case <-deadline.C:
				return &types.BrowserError{Op: "wait navigation", Err: context.DeadlineExceeded}
			case <-ctx.Done():
				return &types.BrowserError{Op: "wait navigation", Err: ctx.Err()}
			}
		}
	}
}

func (p *Page) OnDialog(h browser.DialogHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialog = h
}

func (p *Page) CurrentURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) matches(raw string) (bool, error) {
	p.mu.Lock()
	html := p.html
	p.mu.Unlock()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("parse fixture: %w", err)
	}

	sel := browser.ParseSelector(raw)
	if sel.TextOnly() {
		return strings.Contains(doc.Text(), sel.Text), nil
	}
	found := doc.Find(sel.CSS)
	if sel.Text != "" {
		found = found.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.Text(), sel.Text)
		})
	}
	return found.Length() > 0, nil
}
