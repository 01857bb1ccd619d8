package browser

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

// RodLauncher launches Chromium through go-rod.
type RodLauncher struct {
	logger *slog.Logger
}

// NewRodLauncher creates a launcher for real Chromium instances.
func NewRodLauncher(logger *slog.Logger) *RodLauncher {
	return &RodLauncher{logger: logger.With("component", "rod_launcher")}
}

// Launch starts a Chromium process and connects to it. The browser lives
// until Close is called or ctx is cancelled.
func (l *RodLauncher) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	ln := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if opts.Bin != "" {
		ln = ln.Bin(opts.Bin)
	}
	if opts.WindowSize != "" {
		ln = ln.Set("window-size", opts.WindowSize)
	}

	controlURL, err := ln.Launch()
	if err != nil {
		return nil, &types.BrowserError{Op: "launch", Err: err}
	}

	b := rod.New().Context(ctx).ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		ln.Kill()
		return nil, &types.BrowserError{Op: "connect", Err: err}
	}

	l.logger.Debug("browser launched", "headless", opts.Headless, "control_url", controlURL)
	return &rodBrowser{browser: b, launcher: ln, logger: l.logger}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	logger   *slog.Logger
}

// NewPage opens a tab in a fresh incognito context, so pages never share
// cookies or storage.
func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	incognito, err := b.browser.Incognito()
	if err != nil {
		return nil, &types.BrowserError{Op: "incognito context", Err: err}
	}
	p, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, &types.BrowserError{Op: "new page", Err: err}
	}
	return &rodPage{page: p, logger: b.logger}, nil
}

func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	b.launcher.Cleanup()
	return err
}

type rodPage struct {
	page   *rod.Page
	logger *slog.Logger
}

func (p *rodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pg := p.page.Context(tctx)
	wait := pg.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := pg.Navigate(url); err != nil {
		return &types.BrowserError{Op: "navigate", Target: url, Err: err}
	}
	wait()
	if err := tctx.Err(); err != nil {
		return &types.BrowserError{Op: "navigate", Target: url, Err: err}
	}
	return nil
}

func (p *rodPage) Evaluate(ctx context.Context, script string) ([]byte, error) {
	res, err := p.page.Context(ctx).Eval(script)
	if err != nil {
		return nil, &types.BrowserError{Op: "evaluate", Err: err}
	}
	return res.Value.MarshalJSON()
}

func (p *rodPage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := p.element(tctx, selector)
	if err != nil {
		return &types.BrowserError{Op: "click", Target: selector, Err: err}
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return &types.BrowserError{Op: "click", Target: selector, Err: err}
	}
	return nil
}

func (p *rodPage) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := p.element(tctx, selector)
	if err != nil {
		return &types.BrowserError{Op: "fill", Target: selector, Err: err}
	}
	if err := el.SelectAllText(); err != nil {
		return &types.BrowserError{Op: "fill", Target: selector, Err: err}
	}
	if err := el.Input(value); err != nil {
		return &types.BrowserError{Op: "fill", Target: selector, Err: err}
	}
	return nil
}

func (p *rodPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := p.element(tctx, selector); err != nil {
		return &types.BrowserError{Op: "wait for", Target: selector, Err: err}
	}
	return nil
}

func (p *rodPage) WaitNavigation(ctx context.Context, timeout time.Duration) func() error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	wait := p.page.Context(tctx).WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	return func() error {
		defer cancel()
		wait()
		if err := tctx.Err(); err != nil {
			return &types.BrowserError{Op: "wait navigation", Err: err}
		}
		return nil
	}
}

func (p *rodPage) OnDialog(h DialogHandler) {
	go p.page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		accept := h(Dialog{Type: string(e.Type), Message: e.Message})
		err := proto.PageHandleJavaScriptDialog{
			Accept:     accept,
			PromptText: e.DefaultPrompt,
		}.Call(p.page)
		if err != nil {
			p.logger.Debug("dialog handling failed", "error", err)
		}
	})()
}

func (p *rodPage) CurrentURL() string {
	info, err := p.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

// element resolves one of the supported selector forms, retrying until
// ctx expires.
func (p *rodPage) element(ctx context.Context, raw string) (*rod.Element, error) {
	sel := ParseSelector(raw)
	pg := p.page.Context(ctx)
	switch {
	case sel.TextOnly():
		return pg.ElementX(fmt.Sprintf("//*[contains(text(), %s)]", quoteXPath(sel.Text)))
	case sel.Text != "":
		return pg.ElementR(sel.CSS, regexp.QuoteMeta(sel.Text))
	default:
		return pg.Element(sel.CSS)
	}
}

func quoteXPath(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}
