package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/QuizGoat/internal/config"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quizgoat",
		Short: "QuizGoat - quiz review crawler",
		Long: `QuizGoat drives a real browser through a quiz site's review pages and
archives every question, its choices and the marked answers.

Features:
  • Operator-assisted login in a visible browser window
  • Review page enumeration and per-question extraction
  • SQLite or MongoDB archive, Redis-backed job registry
  • JSON, JSONL, CSV and PDF exports
  • Live job progress over WebSocket
  • Prometheus metrics endpoint`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(testsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(pdfCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "QuizGoat %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server:\n")
			fmt.Fprintf(out, "  Port:              %d\n", cfg.Server.Port)
			fmt.Fprintf(out, "  Compression:       %v\n", cfg.Server.Compression)
			fmt.Fprintf(out, "  Progress Interval: %s\n", cfg.Server.ProgressInterval)
			fmt.Fprintf(out, "\nBrowser:\n")
			fmt.Fprintf(out, "  Headless:          %v\n", cfg.Browser.Headless)
			fmt.Fprintf(out, "  Window Size:       %s\n", cfg.Browser.WindowSize)
			fmt.Fprintf(out, "  Nav Timeout:       %s\n", cfg.Browser.NavigationTimeout)
			fmt.Fprintf(out, "\nSite:\n")
			fmt.Fprintf(out, "  Origin:            %s\n", cfg.Site.Origin)
			fmt.Fprintf(out, "  Show-all Tab:      %s\n", cfg.Site.ShowAllSelector)
			fmt.Fprintf(out, "  Links:             #%s .%s\n", cfg.Site.ContainerID, cfg.Site.LinkClass)
			fmt.Fprintf(out, "\nScan:\n")
			fmt.Fprintf(out, "  Max Questions:     %d\n", cfg.Scan.MaxQuestions)
			fmt.Fprintf(out, "  Item Delay:        %s\n", cfg.Scan.ItemDelay)
			fmt.Fprintf(out, "  Page Timeout:      %s\n", cfg.Scan.PageTimeout)
			fmt.Fprintf(out, "\nStorage:\n")
			fmt.Fprintf(out, "  Type:              %s\n", cfg.Storage.Type)
			switch cfg.Storage.Type {
			case "sqlite":
				fmt.Fprintf(out, "  Path:              %s\n", cfg.Storage.SQLitePath)
			case "mongodb":
				fmt.Fprintf(out, "  Database:          %s\n", cfg.Storage.MongoDatabase)
			}
			fmt.Fprintf(out, "\nJobs:\n")
			fmt.Fprintf(out, "  Store:             %s\n", cfg.Jobs.Store)
			if cfg.Jobs.Store == "redis" {
				fmt.Fprintf(out, "  Redis:             %s (ttl %s)\n", cfg.Jobs.RedisAddr, cfg.Jobs.TTL)
			}
			fmt.Fprintf(out, "\nMetrics:\n")
			fmt.Fprintf(out, "  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Fprintf(out, "  Path:              %s\n", cfg.Metrics.Path)
			return nil
		},
	}
}

// setupLogger creates a structured logger from the logging config. The
// returned closer releases a log file when one was opened.
func setupLogger(cfg config.LoggingConfig) (*slog.Logger, func() error, error) {
	var w io.Writer
	closer := func() error { return nil }

	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f.Close
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), closer, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
