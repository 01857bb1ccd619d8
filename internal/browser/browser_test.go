package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IshaanNene/QuizGoat/internal/browser"
	"github.com/IshaanNene/QuizGoat/internal/browser/browsertest"
	"github.com/IshaanNene/QuizGoat/internal/types"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		raw  string
		css  string
		text string
	}{
		{`#pills-all-tab`, "#pills-all-tab", ""},
		{`text="logged in on another device"`, "", "logged in on another device"},
		{`text=Sign out`, "", "Sign out"},
		{`button:has-text("Log")`, "button", "Log"},
		{`.alert-danger, .error-message`, ".alert-danger, .error-message", ""},
	}
	for _, tt := range tests {
		sel := browser.ParseSelector(tt.raw)
		if sel.CSS != tt.css || sel.Text != tt.text {
			t.Errorf("%s: got css=%q text=%q", tt.raw, sel.CSS, sel.Text)
		}
	}
	if !browser.ParseSelector(`text="x"`).TextOnly() {
		t.Error("text selector should be text-only")
	}
}

func TestSnapshotThroughFake(t *testing.T) {
	site := browsertest.NewSite().Page("https://quiz.test/q/1", `<html><body><p>Hello</p></body></html>`)
	l := browsertest.NewLauncher(site)
	ctx := context.Background()

	b, err := l.Launch(ctx, browser.LaunchOptions{Headless: true})
	if err != nil {
		t.Fatal(err)
	}
	p, err := b.NewPage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Navigate(ctx, "https://quiz.test/q/1", time.Second); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	html, err := browser.Snapshot(ctx, p)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if html != `<html><body><p>Hello</p></body></html>` {
		t.Errorf("unexpected snapshot %q", html)
	}
	if p.CurrentURL() != "https://quiz.test/q/1" {
		t.Errorf("unexpected url %q", p.CurrentURL())
	}

	_ = b.Close()
	if _, err := browser.Snapshot(ctx, p); !errors.Is(err, types.ErrPageClosed) {
		t.Errorf("expected ErrPageClosed after close, got %v", err)
	}
}

func TestFakeWaitForTimesOut(t *testing.T) {
	site := browsertest.NewSite()
	b, _ := browsertest.NewLauncher(site).Launch(context.Background(), browser.LaunchOptions{})
	p, _ := b.NewPage(context.Background())

	start := time.Now()
	err := p.WaitFor(context.Background(), ".missing", 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout")
	}
	var be *types.BrowserError
	if !errors.As(err, &be) || be.Op != "wait for" {
		t.Errorf("expected BrowserError from wait for, got %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("returned before the timeout elapsed")
	}
}
