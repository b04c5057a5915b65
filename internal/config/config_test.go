package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	srs "github.com/example/chirpolly/internal/spaced_repetition"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadFromEnvAndTuning(t *testing.T) {
	dir := t.TempDir()
	tuning := writeFile(t, dir, "chirpolly.toml", `
[scheduler]
relearn_interval = 0
easy_bonus = 1.5

[quiz]
options = 3
slow_seconds = 30
`)
	t.Setenv("SRS_CONFIG_PATH", tuning)
	t.Setenv("DB_TYPE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://chirpolly@localhost/chirpolly?sslmode=disable")
	t.Setenv("NOTIFICATION_START_HOUR", "9")
	t.Setenv("DEFAULT_WORDS_PER_DAY", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://chirpolly.app, ,http://localhost:5173")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBType != "postgres" {
		t.Errorf("DBType = %q, want postgres", cfg.DBType)
	}
	if cfg.NotificationStartHour != 9 {
		t.Errorf("NotificationStartHour = %d, want 9", cfg.NotificationStartHour)
	}
	if cfg.DefaultWordsPerDay != 10 {
		t.Errorf("DefaultWordsPerDay = %d, want default 10", cfg.DefaultWordsPerDay)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://chirpolly.app" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}

	want := srs.DefaultConfig()
	want.RelearnInterval = 0
	want.EasyBonus = 1.5
	if cfg.SRS != want {
		t.Errorf("SRS = %+v, want %+v", cfg.SRS, want)
	}
	if cfg.Quiz.Options != 3 || cfg.Quiz.SlowAnswer != 30*time.Second || cfg.Quiz.FastAnswer != 5*time.Second {
		t.Errorf("Quiz = %+v", cfg.Quiz)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, ".env", "HTTP_ADDR=:9999\nENABLE_SCHEDULER=false\n")
	t.Setenv("SRS_CONFIG_PATH", filepath.Join(dir, "missing.toml"))
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("ENABLE_SCHEDULER", "")
	// godotenv does not override variables that are already set
	os.Unsetenv("HTTP_ADDR")
	os.Unsetenv("ENABLE_SCHEDULER")

	cfg, err := Load(env)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" || cfg.EnableScheduler {
		t.Errorf("HTTPAddr/EnableScheduler = %q/%v", cfg.HTTPAddr, cfg.EnableScheduler)
	}

	if _, err := Load(filepath.Join(dir, "nope.env")); err != nil {
		t.Errorf("missing env file should be ignored: %v", err)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SRS_CONFIG_PATH", writeFile(t, dir, "bad.toml", "[scheduler]\nmin_ease = 0.5\n"))
	if _, err := Load(""); !errors.Is(err, srs.ErrInvalidConfig) {
		t.Errorf("Load error = %v, want ErrInvalidConfig", err)
	}

	t.Setenv("SRS_CONFIG_PATH", writeFile(t, dir, "broken.toml", "[scheduler\n"))
	if _, err := Load(""); err == nil {
		t.Error("expected decode error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown db", func(c *Config) { c.DBType = "mysql" }},
		{"postgres without url", func(c *Config) { c.DBType = "postgres" }},
		{"sqlite without path", func(c *Config) { c.DBPath = "" }},
		{"inverted window", func(c *Config) { c.NotificationStartHour, c.NotificationEndHour = 20, 8 }},
		{"hour out of range", func(c *Config) { c.NotificationEndHour = 24 }},
		{"zero words per day", func(c *Config) { c.DefaultWordsPerDay = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate = %v, want ErrInvalid", err)
			}
		})
	}
}
