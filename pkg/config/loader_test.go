package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_BOT_TOKEN", "test-token")
	t.Setenv("DATABASE_URL", "postgres://localhost/ratingxchange")
}

func TestLoader_LoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "ratingxchange-bot" {
		t.Errorf("expected app name 'ratingxchange-bot', got %s", cfg.App.Name)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Log.Level)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("expected metrics port 9090, got %d", cfg.Metrics.Port)
	}
	if cfg.Discord.BotToken != "test-token" {
		t.Errorf("expected bot token from env, got %q", cfg.Discord.BotToken)
	}
	if cfg.Database.URL != "postgres://localhost/ratingxchange" {
		t.Errorf("expected database url from env, got %q", cfg.Database.URL)
	}
}

func TestLoader_LoadFromFile(t *testing.T) {
	setRequiredEnv(t)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
app:
  name: custom-bot
  version: 2.0.0
  environment: staging
log:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	loader := NewLoader(WithConfigPaths(configPath))
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "custom-bot" {
		t.Errorf("expected app name 'custom-bot', got %s", cfg.App.Name)
	}
	if cfg.App.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %s", cfg.App.Version)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Log.Level)
	}
}

func TestLoader_PrefixedEnvOverridesFile(t *testing.T) {
	setRequiredEnv(t)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
app:
  name: file-bot
log:
  level: warn
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("RATINGX_APP_NAME", "env-override")

	cfg, err := NewLoader(WithConfigPaths(configPath)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "env-override" {
		t.Errorf("expected env override, got %s", cfg.App.Name)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level from file 'warn', got %s", cfg.Log.Level)
	}
}

func TestLoader_BareEnvVarsWinOverPrefixed(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATINGX_DISCORD_BOT_TOKEN", "prefixed-token")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Discord.BotToken != "test-token" {
		t.Errorf("expected bare DISCORD_BOT_TOKEN to win, got %q", cfg.Discord.BotToken)
	}
}

func TestLoader_RegisterCommandsInGuilds(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REGISTER_COMMANDS_IN_GUILDS", "123, 456,789")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	want := []uint64{123, 456, 789}
	if len(cfg.Discord.RegisterCommandsInGuilds) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.Discord.RegisterCommandsInGuilds)
	}
	for i, id := range want {
		if cfg.Discord.RegisterCommandsInGuilds[i] != id {
			t.Errorf("expected guild id %d at index %d, got %d", id, i, cfg.Discord.RegisterCommandsInGuilds[i])
		}
	}
}

func TestLoader_MissingRequiredVars(t *testing.T) {
	_, err := NewLoader().Load()
	if err == nil {
		t.Fatal("expected error when DISCORD_BOT_TOKEN/DATABASE_URL are unset")
	}
}

func TestMustLoad_Success(t *testing.T) {
	setRequiredEnv(t)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustLoad should not panic with valid config: %v", r)
		}
	}()

	cfg := MustLoad()
	if cfg == nil {
		t.Error("expected non-nil config")
	}
}

func TestLoad_Simple(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg == nil {
		t.Error("expected non-nil config")
	}
}

func TestLoader_ConfigEnvVar(t *testing.T) {
	setRequiredEnv(t)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom-config.yaml")

	configContent := `
app:
  name: config-env-var-bot
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("CONFIG_PATH", configPath)

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "config-env-var-bot" {
		t.Errorf("expected 'config-env-var-bot', got %s", cfg.App.Name)
	}
}
