package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.ProgressInterval <= 0 {
		return fmt.Errorf("server.progress_interval must be > 0")
	}

	if cfg.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}

	if err := ValidateURL(cfg.Site.Origin); err != nil {
		return fmt.Errorf("site.origin: %w", err)
	}
	if cfg.Site.ContainerID == "" {
		return fmt.Errorf("site.container_id must not be empty")
	}
	if cfg.Site.LinkClass == "" {
		return fmt.Errorf("site.link_class must not be empty")
	}

	if cfg.Scan.ItemDelay < 0 {
		return fmt.Errorf("scan.item_delay must be >= 0")
	}
	if cfg.Scan.SettleDelay < 0 {
		return fmt.Errorf("scan.settle_delay must be >= 0")
	}
	if cfg.Scan.PageTimeout <= 0 {
		return fmt.Errorf("scan.page_timeout must be > 0")
	}
	if cfg.Scan.MaxQuestions < 0 {
		return fmt.Errorf("scan.max_questions must be >= 0, got %d", cfg.Scan.MaxQuestions)
	}

	if len(cfg.Login.SubmitSelectors) == 0 {
		return fmt.Errorf("login.submit_selectors must not be empty")
	}

	switch cfg.Storage.Type {
	case "memory":
	case "sqlite":
		if cfg.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for sqlite storage")
		}
	case "mongodb":
		if cfg.Storage.MongoURI == "" || cfg.Storage.MongoDatabase == "" {
			return fmt.Errorf("storage.mongo_uri and storage.mongo_database are required for mongodb storage")
		}
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: memory, sqlite, mongodb)", cfg.Storage.Type)
	}

	switch cfg.Jobs.Store {
	case "memory":
	case "redis":
		if cfg.Jobs.RedisAddr == "" {
			return fmt.Errorf("jobs.redis_addr is required for the redis job store")
		}
	default:
		return fmt.Errorf("jobs.store must be 'memory' or 'redis', got %q", cfg.Jobs.Store)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		return fmt.Errorf("metrics.path must not be empty when metrics are enabled")
	}

	return nil
}

// ValidateURL checks that a URL is absolute http(s).
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
