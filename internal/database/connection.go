package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("database: not found")

// Connect opens the database and creates the schema.
// dbType is "sqlite" (dsn is a file path or ":memory:") or "postgres" (dsn is a URL).
func Connect(ctx context.Context, dbType, dsn string) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dsn != ":memory:" {
			// Create data directory if it doesn't exist
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		db, err = sqlx.ConnectContext(ctx, "sqlite3", dsn+"?_foreign_keys=on&_busy_timeout=5000")
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		// SQLite doesn't support multiple writers, and every :memory:
		// connection is a separate database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case "postgres", "postgresql":
		db, err = sqlx.ConnectContext(ctx, "postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type dialect struct {
	serial    string
	timestamp string
}

func dialectOf(db *sqlx.DB) dialect {
	if db.DriverName() == "postgres" {
		return dialect{serial: "BIGSERIAL PRIMARY KEY", timestamp: "TIMESTAMPTZ"}
	}
	return dialect{serial: "INTEGER PRIMARY KEY AUTOINCREMENT", timestamp: "TIMESTAMP"}
}

// Migrate creates the tables if they don't exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	d := dialectOf(db)
	statements := []struct {
		name string
		ddl  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id BIGINT PRIMARY KEY,
				username TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				language TEXT NOT NULL DEFAULT '',
				notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				notification_hour INTEGER NOT NULL DEFAULT 9,
				words_per_day INTEGER NOT NULL DEFAULT 10,
				created_at ` + d.timestamp + ` NOT NULL,
				updated_at ` + d.timestamp + ` NOT NULL
			)`},
		{"vocabulary_items", `
			CREATE TABLE IF NOT EXISTS vocabulary_items (
				learner_id BIGINT NOT NULL,
				item_id TEXT NOT NULL,
				position INTEGER NOT NULL,
				language TEXT NOT NULL DEFAULT '',
				word TEXT NOT NULL,
				meaning TEXT NOT NULL DEFAULT '',
				transliteration TEXT NOT NULL DEFAULT '',
				interval_days INTEGER NOT NULL DEFAULT 0,
				repetitions INTEGER NOT NULL DEFAULT 0,
				ease_factor DOUBLE PRECISION NOT NULL,
				due_date ` + d.timestamp + ` NOT NULL,
				last_reviewed ` + d.timestamp + `,
				last_quality INTEGER NOT NULL DEFAULT -1,
				PRIMARY KEY (learner_id, item_id)
			)`},
		{"vocabulary_items due index", `
			CREATE INDEX IF NOT EXISTS idx_vocabulary_items_due
				ON vocabulary_items (learner_id, due_date)`},
		{"review_logs", `
			CREATE TABLE IF NOT EXISTS review_logs (
				id ` + d.serial + `,
				learner_id BIGINT NOT NULL,
				item_id TEXT NOT NULL,
				quality INTEGER NOT NULL,
				reviewed_at ` + d.timestamp + ` NOT NULL,
				interval_days INTEGER NOT NULL,
				ease_factor DOUBLE PRECISION NOT NULL
			)`},
		{"review_logs item index", `
			CREATE INDEX IF NOT EXISTS idx_review_logs_item
				ON review_logs (learner_id, item_id, reviewed_at)`},
		{"completed_units", `
			CREATE TABLE IF NOT EXISTS completed_units (
				learner_id BIGINT NOT NULL,
				language TEXT NOT NULL,
				unit_id TEXT NOT NULL,
				completed_at ` + d.timestamp + ` NOT NULL,
				PRIMARY KEY (learner_id, language, unit_id)
			)`},
	}
	for _, s := range statements {
		if _, err := db.ExecContext(ctx, s.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}
	return nil
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
