package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for QuizGoat.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  yaml:"server"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Site    SiteConfig    `mapstructure:"site"    yaml:"site"`
	Scan    ScanConfig    `mapstructure:"scan"    yaml:"scan"`
	Login   LoginConfig   `mapstructure:"login"   yaml:"login"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Jobs    JobsConfig    `mapstructure:"jobs"    yaml:"jobs"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port             int           `mapstructure:"port"              yaml:"port"`
	Compression      bool          `mapstructure:"compression"       yaml:"compression"`
	ProgressInterval time.Duration `mapstructure:"progress_interval" yaml:"progress_interval"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"  yaml:"shutdown_timeout"`
}

// BrowserConfig controls how Chromium is launched for each job.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"           yaml:"headless"`
	Bin               string        `mapstructure:"bin"                yaml:"bin"`
	NoSandbox         bool          `mapstructure:"no_sandbox"         yaml:"no_sandbox"`
	WindowSize        string        `mapstructure:"window_size"        yaml:"window_size"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// SiteConfig describes the markup family of the target site.
type SiteConfig struct {
	Origin          string `mapstructure:"origin"            yaml:"origin"`
	ShowAllSelector string `mapstructure:"show_all_selector" yaml:"show_all_selector"`
	ContainerID     string `mapstructure:"container_id"      yaml:"container_id"`
	LinkClass       string `mapstructure:"link_class"        yaml:"link_class"`
}

// ScanConfig controls the batch driver.
type ScanConfig struct {
	ShowAllTimeout time.Duration `mapstructure:"show_all_timeout" yaml:"show_all_timeout"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"     yaml:"settle_delay"`
	ItemDelay      time.Duration `mapstructure:"item_delay"       yaml:"item_delay"`
	PageTimeout    time.Duration `mapstructure:"page_timeout"     yaml:"page_timeout"`
	MaxQuestions   int           `mapstructure:"max_questions"    yaml:"max_questions"`
}

// LoginConfig controls the best-effort login heuristic.
type LoginConfig struct {
	UsernameSelectors  []string      `mapstructure:"username_selectors"  yaml:"username_selectors"`
	PasswordSelectors  []string      `mapstructure:"password_selectors"  yaml:"password_selectors"`
	SubmitSelectors    []string      `mapstructure:"submit_selectors"    yaml:"submit_selectors"`
	ConflictText       string        `mapstructure:"conflict_text"       yaml:"conflict_text"`
	ErrorSelector      string        `mapstructure:"error_selector"      yaml:"error_selector"`
	FieldTimeout       time.Duration `mapstructure:"field_timeout"       yaml:"field_timeout"`
	NavigationTimeout  time.Duration `mapstructure:"navigation_timeout"  yaml:"navigation_timeout"`
	IndicatorTimeout   time.Duration `mapstructure:"indicator_timeout"   yaml:"indicator_timeout"`
	ConflictPause      time.Duration `mapstructure:"conflict_pause"      yaml:"conflict_pause"`
	ResubmitNavTimeout time.Duration `mapstructure:"resubmit_nav_timeout" yaml:"resubmit_nav_timeout"`
}

// StorageConfig selects and configures the durable store.
type StorageConfig struct {
	Type          string `mapstructure:"type"           yaml:"type"`
	MongoURI      string `mapstructure:"mongo_uri"      yaml:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database"`
	SQLitePath    string `mapstructure:"sqlite_path"    yaml:"sqlite_path"`
}

// JobsConfig selects the job registry backend.
type JobsConfig struct {
	Store         string        `mapstructure:"store"          yaml:"store"`
	RedisAddr     string        `mapstructure:"redis_addr"     yaml:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"       yaml:"redis_db"`
	KeyPrefix     string        `mapstructure:"key_prefix"     yaml:"key_prefix"`
	TTL           time.Duration `mapstructure:"ttl"            yaml:"ttl"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             3001,
			Compression:      true,
			ProgressInterval: 500 * time.Millisecond,
			ShutdownTimeout:  10 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:          false, // a human finishes the login in this window
			NoSandbox:         true,
			WindowSize:        "1366,900",
			NavigationTimeout: 60 * time.Second,
		},
		Site: SiteConfig{
			Origin:          "https://elearning.vnpmi.org",
			ShowAllSelector: "#pills-all-tab",
			ContainerID:     "pills-tabContent",
			LinkClass:       "col-fill",
		},
		Scan: ScanConfig{
			ShowAllTimeout: 5 * time.Second,
			SettleDelay:    1 * time.Second,
			ItemDelay:      500 * time.Millisecond,
			PageTimeout:    30 * time.Second,
			MaxQuestions:   0, // unlimited unless a job asks for a cap
		},
		Login: LoginConfig{
			UsernameSelectors: []string{
				`input[type="email"]`,
				`input[name*="user"]`,
				`input[placeholder*="mail"]`,
			},
			PasswordSelectors: []string{`input[type="password"]`},
			SubmitSelectors: []string{
				`button[type="submit"]`,
				`input[type="submit"]`,
				`button:has-text("Log")`,
			},
			ConflictText:       "logged in on another device",
			ErrorSelector:      ".alert-danger, .error-message",
			FieldTimeout:       5 * time.Second,
			NavigationTimeout:  10 * time.Second,
			IndicatorTimeout:   5 * time.Second,
			ConflictPause:      1 * time.Second,
			ResubmitNavTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Type:          "sqlite",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "quizgoat",
			SQLitePath:    "./data/quizgoat.db",
		},
		Jobs: JobsConfig{
			Store:     "memory",
			RedisAddr: "localhost:6379",
			KeyPrefix: "quizgoat:",
			TTL:       24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
