// Package browser is the narrow capability surface the crawler needs from a
// controllable browser. The engine depends only on these interfaces; the rod
// implementation drives Chromium and browsertest provides an in-memory fake.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// LaunchOptions controls how a browser instance is started.
type LaunchOptions struct {
	Headless   bool
	Bin        string
	NoSandbox  bool
	WindowSize string
}

// Launcher starts browser instances.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is one running browser instance.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Dialog is a native alert, confirm, prompt or beforeunload dialog.
type Dialog struct {
	Type    string
	Message string
}

// DialogHandler decides whether to accept a dialog.
type DialogHandler func(Dialog) bool

// Page is a single tab. Selectors are CSS, plus two text forms:
// `text="..."` matches any element containing the text and
// `css:has-text("...")` narrows a CSS match to elements containing it.
type Page interface {
	// Navigate loads url and waits for DOMContentLoaded.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// Evaluate runs a JavaScript function expression and returns its
	// result as JSON.
	Evaluate(ctx context.Context, script string) ([]byte, error)

	Click(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string, timeout time.Duration) error

	// WaitFor blocks until selector matches or timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// WaitNavigation starts listening for the next DOMContentLoaded right
	// away and returns a function that blocks until it fires or timeout
	// elapses. Call it before the action that triggers navigation.
	WaitNavigation(ctx context.Context, timeout time.Duration) func() error

	// OnDialog subscribes h to every native dialog the page opens.
	OnDialog(h DialogHandler)

	CurrentURL() string
}

// OuterHTMLScript serialises the rendered document. It works on a clone so
// the live page is untouched: elements the browser does not render get the
// data-qg-hidden attribute and checkbox/radio state is written back into
// the checked attribute.
const OuterHTMLScript = `() => {
  const live = Array.from(document.documentElement.querySelectorAll('*'));
  const root = document.documentElement.cloneNode(true);
  const copy = Array.from(root.querySelectorAll('*'));
  live.forEach((el, i) => {
    const c = copy[i];
    if (!c) return;
    const cs = window.getComputedStyle(el);
    if (cs.display === 'none' || cs.visibility === 'hidden') c.setAttribute('data-qg-hidden', '');
    if (el.tagName === 'INPUT') {
      if (el.checked) c.setAttribute('checked', ''); else c.removeAttribute('checked');
    }
  });
  return root.outerHTML;
}`

// Snapshot returns the rendered HTML of the page.
func Snapshot(ctx context.Context, p Page) (string, error) {
	raw, err := p.Evaluate(ctx, OuterHTMLScript)
	if err != nil {
		return "", err
	}
	var html string
	if err := json.Unmarshal(raw, &html); err != nil {
		return "", fmt.Errorf("decode snapshot: %w", err)
	}
	return html, nil
}
