package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/chirpolly/internal/quiz"
	"github.com/example/chirpolly/internal/scheduler"
	srs "github.com/example/chirpolly/internal/spaced_repetition"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Config represents the service configuration.
type Config struct {
	// "sqlite" or "postgres"
	DBType      string
	DBPath      string
	DatabaseURL string

	TelegramToken string
	HTTPAddr      string
	// Web app origins allowed by CORS; empty means the local dev origins
	CORSOrigins []string
	// Snapshot mirror: Redis when RedisAddr is set, else JSON files in SnapshotDir
	RedisAddr   string
	SnapshotDir string

	LogMode     string
	ContentPath string
	TuningPath  string

	EnableScheduler bool
	// Reminders are only sent between these hours (UTC), inclusive
	NotificationStartHour int
	NotificationEndHour   int
	DefaultWordsPerDay    int
	ShutdownTimeout       time.Duration

	SRS  srs.Config
	Quiz quiz.Config
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DBType:                "sqlite",
		DBPath:                "data/chirpolly.db",
		HTTPAddr:              ":8080",
		SnapshotDir:           "data/snapshots",
		LogMode:               "development",
		ContentPath:           "content/catalog.yaml",
		TuningPath:            "chirpolly.toml",
		EnableScheduler:       true,
		NotificationStartHour: scheduler.DefaultNotificationStartHour,
		NotificationEndHour:   scheduler.DefaultNotificationEndHour,
		DefaultWordsPerDay:    10,
		ShutdownTimeout:       5 * time.Second,
		SRS:                   srs.DefaultConfig(),
		Quiz:                  quiz.DefaultConfig(),
	}
}

// Load reads envFile (if it exists), then the environment, then the tuning
// file named by SRS_CONFIG_PATH, and validates the result.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	cfg.DBType = strings.ToLower(envString("DB_TYPE", cfg.DBType))
	cfg.DBPath = envString("DB_PATH", cfg.DBPath)
	cfg.DatabaseURL = envString("DATABASE_URL", cfg.DatabaseURL)
	cfg.TelegramToken = envString("TELEGRAM_BOT_TOKEN", cfg.TelegramToken)
	cfg.HTTPAddr = envString("HTTP_ADDR", cfg.HTTPAddr)
	cfg.CORSOrigins = envList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.RedisAddr = envString("REDIS_ADDR", cfg.RedisAddr)
	cfg.SnapshotDir = envString("SNAPSHOT_DIR", cfg.SnapshotDir)
	cfg.LogMode = envString("LOG_MODE", cfg.LogMode)
	cfg.ContentPath = envString("CONTENT_PATH", cfg.ContentPath)
	cfg.TuningPath = envString("SRS_CONFIG_PATH", cfg.TuningPath)
	cfg.EnableScheduler = envBool("ENABLE_SCHEDULER", cfg.EnableScheduler)
	cfg.NotificationStartHour = envInt("NOTIFICATION_START_HOUR", cfg.NotificationStartHour)
	cfg.NotificationEndHour = envInt("NOTIFICATION_END_HOUR", cfg.NotificationEndHour)
	cfg.DefaultWordsPerDay = envInt("DEFAULT_WORDS_PER_DAY", cfg.DefaultWordsPerDay)
	cfg.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	tuning, err := LoadTuning(cfg.TuningPath)
	if err != nil {
		return Config{}, err
	}
	cfg.SRS = tuning.Scheduler.Apply(cfg.SRS)
	cfg.Quiz = tuning.Quiz.Apply(cfg.Quiz)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail at startup.
func (c Config) Validate() error {
	switch c.DBType {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("%w: DB_PATH is required for sqlite", ErrInvalid)
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for postgres", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unsupported DB_TYPE %q", ErrInvalid, c.DBType)
	}
	if c.NotificationStartHour < 0 || c.NotificationEndHour > 23 || c.NotificationStartHour > c.NotificationEndHour {
		return fmt.Errorf("%w: notification window %d-%d", ErrInvalid, c.NotificationStartHour, c.NotificationEndHour)
	}
	if c.DefaultWordsPerDay < 1 {
		return fmt.Errorf("%w: DEFAULT_WORDS_PER_DAY must be positive", ErrInvalid)
	}
	if err := c.SRS.Validate(); err != nil {
		return err
	}
	return c.Quiz.Validate()
}
