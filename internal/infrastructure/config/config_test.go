package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Name != "HiveKeeper" {
		t.Errorf("app name = %s", cfg.App.Name)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.StateKey != "journal_state" || cfg.Storage.SessionKey != "auth_session" {
		t.Errorf("storage keys = %s / %s", cfg.Storage.StateKey, cfg.Storage.SessionKey)
	}
	if cfg.Trial.DurationDays != 10 {
		t.Errorf("trial days = %d, want 10", cfg.Trial.DurationDays)
	}
	if cfg.JWT.ExpiresIn != 720*time.Hour {
		t.Errorf("jwt expiry = %v, want 720h", cfg.JWT.ExpiresIn)
	}
	if !cfg.App.IsDevelopment() || cfg.App.IsProduction() {
		t.Error("default environment should be development")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("TRIAL_DURATION_DAYS", "30")
	t.Setenv("STORAGE_PATH", "/tmp/test-journal.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Trial.DurationDays != 30 {
		t.Errorf("trial days = %d, want 30", cfg.Trial.DurationDays)
	}
	if cfg.Storage.Path != "/tmp/test-journal.db" {
		t.Errorf("storage path = %s", cfg.Storage.Path)
	}
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Storage: StorageConfig{Path: "journal.db", StateKey: "journal_state"},
			Trial:   TrialConfig{DurationDays: 10},
			JWT:     JWTConfig{Secret: "secret"},
		}
	}

	if err := validateConfig(base()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing storage path", func(c *Config) { c.Storage.Path = "" }},
		{"missing state key", func(c *Config) { c.Storage.StateKey = "" }},
		{"zero trial days", func(c *Config) { c.Trial.DurationDays = 0 }},
		{"missing jwt secret", func(c *Config) { c.JWT.Secret = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := validateConfig(cfg); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestStorageDSN(t *testing.T) {
	cfg := StorageConfig{Path: "journal.db", BusyTimeout: 5 * time.Second}
	dsn := cfg.DSN()

	if !strings.HasPrefix(dsn, "file:journal.db?") {
		t.Errorf("dsn = %s", dsn)
	}
	if !strings.Contains(dsn, "_busy_timeout=5000") {
		t.Errorf("dsn missing busy timeout: %s", dsn)
	}
	if !strings.Contains(dsn, "_journal_mode=WAL") {
		t.Errorf("dsn missing journal mode: %s", dsn)
	}
}
