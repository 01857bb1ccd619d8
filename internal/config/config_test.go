package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quizgoat.yaml")
	body := `
server:
  port: 8088
site:
  origin: https://quiz.example.org
scan:
  item_delay: 250ms
storage:
  type: memory
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("expected port 8088, got %d", cfg.Server.Port)
	}
	if cfg.Site.Origin != "https://quiz.example.org" {
		t.Errorf("unexpected origin %q", cfg.Site.Origin)
	}
	if cfg.Scan.ItemDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms item delay, got %s", cfg.Scan.ItemDelay)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("expected memory storage, got %q", cfg.Storage.Type)
	}
	// untouched keys keep their defaults
	if cfg.Site.ShowAllSelector != "#pills-all-tab" {
		t.Errorf("default show-all selector lost, got %q", cfg.Site.ShowAllSelector)
	}
	if len(cfg.Login.SubmitSelectors) != 3 {
		t.Errorf("expected 3 default submit selectors, got %d", len(cfg.Login.SubmitSelectors))
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("QUIZGOAT_SITE_ORIGIN", "https://env.example.org")
	t.Setenv("QUIZGOAT_JOBS_STORE", "redis")

	cfg, err := Load(writeEmptyConfig(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Site.Origin != "https://env.example.org" {
		t.Errorf("env override not applied, got %q", cfg.Site.Origin)
	}
	if cfg.Jobs.Store != "redis" {
		t.Errorf("expected redis job store, got %q", cfg.Jobs.Store)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"relative origin", func(c *Config) { c.Site.Origin = "/only/a/path" }},
		{"negative delay", func(c *Config) { c.Scan.ItemDelay = -time.Second }},
		{"unknown storage", func(c *Config) { c.Storage.Type = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Storage.SQLitePath = "" }},
		{"unknown job store", func(c *Config) { c.Jobs.Store = "etcd" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"no submit selectors", func(c *Config) { c.Login.SubmitSelectors = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func writeEmptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigDoesNotCapQuestions(t *testing.T) {
	if got := DefaultConfig().Scan.MaxQuestions; got != 0 {
		t.Errorf("scan.max_questions default = %d, want 0 (unlimited)", got)
	}
}
