package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/QuizGoat/internal/browser"
	"github.com/IshaanNene/QuizGoat/internal/config"
	"github.com/IshaanNene/QuizGoat/internal/extract"
	"github.com/IshaanNene/QuizGoat/internal/pipeline"
	"github.com/IshaanNene/QuizGoat/internal/report"
	"github.com/IshaanNene/QuizGoat/internal/storage"
)

var (
	exportFormat string
	exportOutput string

	pdfOutput       string
	pdfExplanations bool
	pdfOnlyCorrect  bool

	extractURL    string
	extractLabels bool
)

// openArchive loads config and opens the configured store for the
// offline commands.
func openArchive(ctx context.Context) (*config.Config, storage.Store, *slog.Logger, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger, closeLog, err := setupLogger(cfg.Logging)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		closeLog()
		return nil, nil, nil, nil, fmt.Errorf("open storage: %w", err)
	}
	cleanup := func() {
		store.Close()
		closeLog()
	}
	return cfg, store, logger, cleanup, nil
}

// testsCmd creates the "tests" subcommand listing archived sessions.
func testsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tests",
		Short: "List archived test sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, store, _, cleanup, err := openArchive(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := store.ListSessions(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tests archived yet.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTOPIC\tSTATUS\tQUESTIONS\tCREATED")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					s.ID, orDash(s.TestName), orDash(s.Topic), s.Status,
					s.QuestionCount, s.CreatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}

// exportCmd creates the "export" subcommand.
func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [test-id]",
		Short: "Export a test session to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, store, logger, cleanup, err := openArchive(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			e, err := report.NewExporter(exportFormat)
			if err != nil {
				return err
			}
			doc, err := report.Load(ctx, store, args[0])
			if err != nil {
				return fmt.Errorf("load test %s: %w", args[0], err)
			}

			path := exportOutput
			if path == "" {
				path = doc.ID + e.Extension()
			}
			if err := report.WriteFile(path, e, doc, logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %d questions written to %s\n", len(doc.Questions), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format: json, jsonl, csv")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default <test-id>.<format>)")
	return cmd
}

// pdfCmd creates the "pdf" subcommand.
func pdfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf [test-id]",
		Short: "Render a test session as a PDF portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, store, logger, cleanup, err := openArchive(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := report.Load(ctx, store, args[0])
			if err != nil {
				return fmt.Errorf("load test %s: %w", args[0], err)
			}

			renderer := report.NewChromePDF(browser.LaunchOptions{
				Bin:       cfg.Browser.Bin,
				NoSandbox: cfg.Browser.NoSandbox,
			}, logger)
			data, err := report.PDF(ctx, renderer, doc, report.Options{
				IncludeExplanation: pdfExplanations,
				OnlyCorrect:        pdfOnlyCorrect,
			})
			if err != nil {
				return err
			}

			path := pdfOutput
			if path == "" {
				path = report.Filename(doc.TestSession, time.Now())
			}
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write pdf: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s (%d bytes)\n", path, len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&pdfOutput, "output", "o", "", "output file (default derived from test name)")
	cmd.Flags().BoolVar(&pdfExplanations, "explanations", true, "include explanations")
	cmd.Flags().BoolVar(&pdfOnlyCorrect, "only-correct", false, "list only the correct choices")
	return cmd
}

// extractCmd runs the extraction cascades over a saved HTML file, which
// is how new markup variants get checked without a live session.
func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [file.html]",
		Short: "Extract a question from a saved page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger, _, _ := setupLogger(config.LoggingConfig{Level: level.String(), Format: "text"})

			pageURL := extractURL
			if pageURL == "" {
				pageURL = "file://" + args[0]
			}
			q, err := extract.New(logger).Extract(pageURL, string(src))
			if err != nil {
				return err
			}

			pipe := pipeline.New(logger)
			pipe.Use(&pipeline.TrimMiddleware{})
			if extractLabels {
				pipe.Use(&pipeline.LabelMiddleware{})
			}
			if q, err = pipe.Process(q); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(q)
		},
	}

	cmd.Flags().StringVar(&extractURL, "url", "", "page URL recorded on the result")
	cmd.Flags().BoolVar(&extractLabels, "labels", false, "assign A, B, C... to choices")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
