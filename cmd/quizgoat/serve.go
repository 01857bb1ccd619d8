package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/QuizGoat/internal/api"
	"github.com/IshaanNene/QuizGoat/internal/browser"
	"github.com/IshaanNene/QuizGoat/internal/engine"
	"github.com/IshaanNene/QuizGoat/internal/observability"
	"github.com/IshaanNene/QuizGoat/internal/report"
	"github.com/IshaanNene/QuizGoat/internal/storage"
)

var (
	servePort     int
	serveHeadless bool
	serveStorage  string
)

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the crawl API server",
		Long:  "Start the HTTP API that launches browser sessions, scans review pages and serves stored tests.",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
	cmd.Flags().BoolVar(&serveHeadless, "headless", false, "launch job browsers headless")
	cmd.Flags().StringVar(&serveStorage, "storage", "", "storage backend: memory, sqlite, mongodb")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = serveHeadless
	}
	if serveStorage != "" {
		cfg.Storage.Type = serveStorage
	}

	logger, closeLog, err := setupLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	jobs, err := engine.OpenJobStore(ctx, cfg.Jobs, logger)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}

	metrics := observability.NewMetrics(logger)
	launcher := browser.NewRodLauncher(logger)

	mgr, err := engine.NewManager(cfg, launcher, jobs, store, metrics, logger)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}

	pdf := report.NewChromePDF(browser.LaunchOptions{
		Bin:       cfg.Browser.Bin,
		NoSandbox: cfg.Browser.NoSandbox,
	}, logger)

	srv := api.NewServer(cfg, mgr, store, pdf, metrics, logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	logger.Info("quizgoat ready",
		"port", cfg.Server.Port,
		"storage", store.Name(),
		"jobs", cfg.Jobs.Store,
		"headless", cfg.Browser.Headless,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown", "error", err)
	}
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		logger.Warn("engine shutdown", "error", err)
	}

	stats := metrics.Snapshot()
	logger.Info("stopped",
		"jobs", stats["jobs_started"],
		"questions", stats["questions_saved"],
		"pages", stats["pages_visited"],
	)
	return nil
}
