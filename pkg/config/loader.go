// pkg/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "RATINGX_"
	configEnvVar = "CONFIG_PATH"
)

// bareEnvVars lists the environment variables named verbatim in spec.md §6.
// They are not prefixed, unlike every other tunable.
var bareEnvVars = map[string]string{
	"DISCORD_BOT_TOKEN":           "discord.bot_token",
	"DATABASE_URL":                "database.url",
	"REGISTER_COMMANDS_GLOBALLY":  "discord.register_commands_globally",
	"REGISTER_COMMANDS_IN_GUILDS": "discord.register_commands_in_guilds",
}

// Loader loads configuration from layered sources.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/ratingxchange/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigPaths sets the config file search paths.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// Load loads configuration with priority (lowest to highest):
//  1. Defaults
//  2. Config file (yaml, optional)
//  3. Environment variables
//  4. The four bare, unprefixed variables named in spec.md §6
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := l.loadConfigFile(); err != nil {
		// The file is optional; only env vars and defaults are required.
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	if err := l.loadBareEnv(); err != nil {
		return nil, fmt.Errorf("failed to load bare env vars: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.applyGuildList(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults loads the baseline configuration values.
func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		"app.name":        "ratingxchange-bot",
		"app.version":     "0.1.0",
		"app.environment": "development",
		"app.debug":       false,

		"discord.register_commands_globally": false,
		"discord.confirm_timeout":             5 * time.Minute,

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		"metrics.enabled":   true,
		"metrics.port":      9090,
		"metrics.path":      "/metrics",
		"metrics.namespace": "ratingxchange",

		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "ratingxchange-bot",
		"tracing.sample_rate":  0.1,

		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  30 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.migrations_path":    ".",
		"database.auto_migrate":       true,

		// START_THRESHOLD / END_THRESHOLD default to 1h per spec.md §4.7/§9.
		"scheduler.start_threshold":  time.Hour,
		"scheduler.end_threshold":    time.Hour,
		"scheduler.default_sleep":    time.Hour,
		"scheduler.worker_pool_size": 2,

		"rate_limit.requests": 5,
		"rate_limit.window":   time.Minute,
		"rate_limit.backend":  "memory",
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadConfigFile loads configuration from an optional YAML file.
func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

// loadEnv loads every RATINGX_-prefixed environment variable.
func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider(l.envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, l.envPrefix)),
			"_", ".",
		)
	}), nil)
}

// loadBareEnv loads the four unprefixed variables named in spec.md §6.
func (l *Loader) loadBareEnv() error {
	values := map[string]any{}
	for envVar, key := range bareEnvVars {
		if v, ok := os.LookupEnv(envVar); ok {
			values[key] = v
		}
	}
	if len(values) == 0 {
		return nil
	}
	return l.k.Load(confmap.Provider(values, "."), nil)
}

// applyGuildList parses REGISTER_COMMANDS_IN_GUILDS (a koanf string after
// loadBareEnv) into the typed []uint64 guild ID list.
func (l *Loader) applyGuildList(cfg *Config) error {
	raw := l.k.String("discord.register_commands_in_guilds")
	if raw == "" {
		return nil
	}

	var ids []uint64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid guild id %q in REGISTER_COMMANDS_IN_GUILDS: %w", part, err)
		}
		ids = append(ids, id)
	}
	cfg.Discord.RegisterCommandsInGuilds = ids
	return nil
}

// MustLoad loads configuration or panics.
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load loads configuration with default settings.
func Load() (*Config, error) {
	return NewLoader().Load()
}
