package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/QuizGoat/internal/browser"
	"github.com/IshaanNene/QuizGoat/internal/config"
	"github.com/IshaanNene/QuizGoat/internal/extract"
	"github.com/IshaanNene/QuizGoat/internal/observability"
	"github.com/IshaanNene/QuizGoat/internal/pipeline"
	"github.com/IshaanNene/QuizGoat/internal/storage"
	"github.com/IshaanNene/QuizGoat/internal/types"
)

// BatchRequest describes one review-page scan.
type BatchRequest struct {
	JobID         string
	TestSessionID string
	MaxQuestions  int
}

// BatchResult counts what a scan did.
type BatchResult struct {
	Total   int `json:"total"`
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
}

// Reporter applies a progress change to the job being scanned.
type Reporter func(update func(*Job))

// Scanner walks the question links of a review page and stores every
// question it can extract.
type Scanner struct {
	site      config.SiteConfig
	scan      config.ScanConfig
	links     *extract.LinkEnumerator
	extractor *extract.Extractor
	pipeline  *pipeline.Pipeline
	gateway   *storage.Gateway
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewScanner wires a Scanner. pl may be nil for the default pipeline.
func NewScanner(cfg *config.Config, pl *pipeline.Pipeline, gw *storage.Gateway, metrics *observability.Metrics, logger *slog.Logger) (*Scanner, error) {
	links, err := extract.NewLinkEnumerator(cfg.Site.ContainerID, cfg.Site.LinkClass, cfg.Site.Origin)
	if err != nil {
		return nil, err
	}
	if pl == nil {
		pl = pipeline.Default(logger)
	}
	return &Scanner{
		site:      cfg.Site,
		scan:      cfg.Scan,
		links:     links,
		extractor: extract.New(logger),
		pipeline:  pl,
		gateway:   gw,
		metrics:   metrics,
		logger:    logger.With("component", "scanner"),
	}, nil
}

// Run scans the review page currently loaded in page. Per-item failures are
// logged and skipped; the returned error is set only when the batch as a
// whole could not proceed.
func (s *Scanner) Run(ctx context.Context, page browser.Page, req BatchRequest, report Reporter) (BatchResult, error) {
	var res BatchResult
	log := s.logger.With("job_id", req.JobID, "test_id", req.TestSessionID)

	if err := page.Click(ctx, s.site.ShowAllSelector, s.scan.ShowAllTimeout); err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		log.Warn("show-all tab not clicked, using the list as shown", "error", err)
	} else if err := sleepCtx(ctx, s.scan.SettleDelay); err != nil {
		return res, err
	}

	src, err := browser.Snapshot(ctx, page)
	if err != nil {
		return res, fmt.Errorf("read review page: %w", err)
	}
	links, err := s.links.Links(src)
	if err != nil {
		return res, fmt.Errorf("enumerate question links: %w", err)
	}
	limit := req.MaxQuestions
	if limit <= 0 {
		limit = s.scan.MaxQuestions
	}
	if limit > 0 && len(links) > limit {
		log.Info("capping question links", "found", len(links), "max", limit)
		links = links[:limit]
	}

	res.Total = len(links)
	log.Info("question links found", "count", res.Total)
	report(func(j *Job) {
		j.TotalQuestions = res.Total
		j.Step = StepExtractingQuestions
	})

	for i, link := range links {
		index := i + 1
		saved, err := s.scanOne(ctx, page, req, index, link)
		if err != nil {
			return res, err
		}
		if saved {
			res.Saved++
		} else {
			res.Skipped++
		}

		progress := batchProgress(index, res.Total)
		report(func(j *Job) { j.Progress = progress })

		if err := sleepCtx(ctx, s.scan.ItemDelay); err != nil {
			return res, err
		}
	}

	log.Info("batch finished", "total", res.Total, "saved", res.Saved, "skipped", res.Skipped)
	return res, nil
}

// scanOne extracts and stores a single question page. A non-nil error
// means the batch must stop.
func (s *Scanner) scanOne(ctx context.Context, page browser.Page, req BatchRequest, index int, link string) (bool, error) {
	log := s.logger.With("job_id", req.JobID, "index", index, "url", link)

	fatal := func(err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, types.ErrPageClosed) {
			return err
		}
		return nil
	}

	if err := page.Navigate(ctx, link, s.scan.PageTimeout); err != nil {
		if ferr := fatal(err); ferr != nil {
			return false, ferr
		}
		log.Warn("question page not loaded", "error", err)
		s.metrics.ItemsSkipped.Add(1)
		return false, nil
	}
	s.metrics.PagesVisited.Add(1)

	src, err := browser.Snapshot(ctx, page)
	if err != nil {
		if ferr := fatal(err); ferr != nil {
			return false, ferr
		}
		log.Warn("question page not readable", "error", err)
		s.metrics.ItemsSkipped.Add(1)
		return false, nil
	}

	eq, err := s.extractor.Extract(link, src)
	if err == nil {
		eq, err = s.pipeline.Process(eq)
	}
	if err != nil {
		log.Warn("question not extracted", "error", err)
		s.metrics.ItemsSkipped.Add(1)
		return false, nil
	}
	if eq == nil {
		log.Warn("question skipped, text or choices missing")
		s.metrics.ItemsSkipped.Add(1)
		return false, nil
	}

	if _, err := s.gateway.Save(ctx, req.TestSessionID, index, eq); err != nil {
		log.Error("question not saved", "error", err)
		s.metrics.SaveErrors.Add(1)
		s.metrics.ItemsSkipped.Add(1)
		return false, nil
	}
	s.metrics.QuestionsSaved.Add(1)
	log.Debug("question saved", "choices", len(eq.Choices), "correct", eq.CorrectCount())
	return true, nil
}
