package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied by the caller afterwards.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("QUIZGOAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("quizgoat")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".quizgoat"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides bind.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.compression", cfg.Server.Compression)
	v.SetDefault("server.progress_interval", cfg.Server.ProgressInterval)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.no_sandbox", cfg.Browser.NoSandbox)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)
	v.SetDefault("browser.navigation_timeout", cfg.Browser.NavigationTimeout)

	v.SetDefault("site.origin", cfg.Site.Origin)
	v.SetDefault("site.show_all_selector", cfg.Site.ShowAllSelector)
	v.SetDefault("site.container_id", cfg.Site.ContainerID)
	v.SetDefault("site.link_class", cfg.Site.LinkClass)

	v.SetDefault("scan.show_all_timeout", cfg.Scan.ShowAllTimeout)
	v.SetDefault("scan.settle_delay", cfg.Scan.SettleDelay)
	v.SetDefault("scan.item_delay", cfg.Scan.ItemDelay)
	v.SetDefault("scan.page_timeout", cfg.Scan.PageTimeout)
	v.SetDefault("scan.max_questions", cfg.Scan.MaxQuestions)

	v.SetDefault("login.username_selectors", cfg.Login.UsernameSelectors)
	v.SetDefault("login.password_selectors", cfg.Login.PasswordSelectors)
	v.SetDefault("login.submit_selectors", cfg.Login.SubmitSelectors)
	v.SetDefault("login.conflict_text", cfg.Login.ConflictText)
	v.SetDefault("login.error_selector", cfg.Login.ErrorSelector)
	v.SetDefault("login.field_timeout", cfg.Login.FieldTimeout)
	v.SetDefault("login.navigation_timeout", cfg.Login.NavigationTimeout)
	v.SetDefault("login.indicator_timeout", cfg.Login.IndicatorTimeout)
	v.SetDefault("login.conflict_pause", cfg.Login.ConflictPause)
	v.SetDefault("login.resubmit_nav_timeout", cfg.Login.ResubmitNavTimeout)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.sqlite_path", cfg.Storage.SQLitePath)

	v.SetDefault("jobs.store", cfg.Jobs.Store)
	v.SetDefault("jobs.redis_addr", cfg.Jobs.RedisAddr)
	v.SetDefault("jobs.redis_password", cfg.Jobs.RedisPassword)
	v.SetDefault("jobs.redis_db", cfg.Jobs.RedisDB)
	v.SetDefault("jobs.key_prefix", cfg.Jobs.KeyPrefix)
	v.SetDefault("jobs.ttl", cfg.Jobs.TTL)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
