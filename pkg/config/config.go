// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the top-level, process-wide configuration.
type Config struct {
	App       AppConfig       `koanf:"app"`
	Discord   DiscordConfig   `koanf:"discord"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Database  DatabaseConfig  `koanf:"database"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

// AppConfig holds general application metadata.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// DiscordConfig holds the bot's connection and command-registration settings
// (spec.md §6's configuration contract).
type DiscordConfig struct {
	BotToken                  string   `koanf:"bot_token"`
	RegisterCommandsGlobally  bool     `koanf:"register_commands_globally"`
	RegisterCommandsInGuilds  []uint64 `koanf:"register_commands_in_guilds"`
	ConfirmTimeout            time.Duration `koanf:"confirm_timeout"`
}

// LogConfig mirrors the slog/lumberjack knobs used by pkg/logger.
type LogConfig struct {
	Level      string `koanf:"level"`     // debug, info, warn, error
	Format     string `koanf:"format"`    // json, text
	Output     string `koanf:"output"`    // stdout, stderr, file
	FilePath   string `koanf:"file_path"` // log file path
	MaxSize    int    `koanf:"max_size"`  // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"` // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
}

// TracingConfig controls the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// DatabaseConfig holds the Postgres connection pool settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrationsPath  string        `koanf:"migrations_path"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// SchedulerConfig controls the timing thresholds of the exchange control
// loop (spec.md §4.7/§9: START_THRESHOLD, END_THRESHOLD, default sleep).
type SchedulerConfig struct {
	StartThreshold time.Duration `koanf:"start_threshold"`
	EndThreshold   time.Duration `koanf:"end_threshold"`
	DefaultSleep   time.Duration `koanf:"default_sleep"`
	WorkerPoolSize int           `koanf:"worker_pool_size"`
}

// RateLimitConfig controls per-member command throttling (spec.md §6
// "a member hammering /submit shouldn't be able to exhaust the pool").
type RateLimitConfig struct {
	Requests  int           `koanf:"requests"`
	Window    time.Duration `koanf:"window"`
	Backend   string        `koanf:"backend"` // memory, redis
	RedisAddr string        `koanf:"redis_addr"`
}

// Validate checks the configuration invariants named in spec.md §6:
// DISCORD_BOT_TOKEN and DATABASE_URL are required and must be non-empty.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Discord.BotToken) == "" {
		errs = append(errs, "discord.bot_token (DISCORD_BOT_TOKEN) must not be empty")
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, "database.url (DATABASE_URL) must not be empty")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Scheduler.StartThreshold <= 0 {
		errs = append(errs, "scheduler.start_threshold must be positive")
	}
	if c.Scheduler.EndThreshold <= 0 {
		errs = append(errs, "scheduler.end_threshold must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsDevelopment reports whether the app is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction reports whether the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
