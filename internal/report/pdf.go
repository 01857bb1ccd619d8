package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/IshaanNene/QuizGoat/internal/browser"
	"github.com/IshaanNene/QuizGoat/internal/types"
)

// PDFRenderer converts an HTML document to PDF.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// A4 in inches and a 20px margin at 96 dpi.
const (
	a4Width  = 8.27
	a4Height = 11.69
	margin   = 20.0 / 96
)

// ChromePDF prints HTML with a short-lived headless Chromium.
type ChromePDF struct {
	opts   browser.LaunchOptions
	logger *slog.Logger
}

// NewChromePDF creates a renderer. Headless is always forced on.
func NewChromePDF(opts browser.LaunchOptions, logger *slog.Logger) *ChromePDF {
	opts.Headless = true
	return &ChromePDF{opts: opts, logger: logger.With("component", "pdf")}
}

func (c *ChromePDF) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	ln := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(c.opts.NoSandbox).
		Set("disable-gpu")
	if c.opts.Bin != "" {
		ln = ln.Bin(c.opts.Bin)
	}
	defer ln.Cleanup()
	defer ln.Kill()

	controlURL, err := ln.Launch()
	if err != nil {
		return nil, &types.BrowserError{Op: "launch", Err: err}
	}
	b := rod.New().Context(ctx).ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, &types.BrowserError{Op: "connect", Err: err}
	}
	defer b.Close()

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, &types.BrowserError{Op: "new page", Err: err}
	}
	if err := page.SetDocumentContent(html); err != nil {
		return nil, &types.BrowserError{Op: "set content", Err: err}
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      ptr(a4Width),
		PaperHeight:     ptr(a4Height),
		MarginTop:       ptr(margin),
		MarginBottom:    ptr(margin),
		MarginLeft:      ptr(margin),
		MarginRight:     ptr(margin),
	})
	if err != nil {
		return nil, &types.BrowserError{Op: "print pdf", Err: err}
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	c.logger.Debug("pdf rendered", "bytes", len(data))
	return data, nil
}

func ptr(v float64) *float64 { return &v }

// PDF renders doc to PDF bytes through r.
func PDF(ctx context.Context, r PDFRenderer, doc *Document, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, doc, opts); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return r.RenderPDF(ctx, buf.String())
}
