package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/chirpolly/pkg/models"
)

const userColumns = `id, username, first_name, language, notification_enabled,
	notification_hour, words_per_day, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// GetByID returns a user by ID, or ErrNotFound
func (r *UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// Upsert inserts a new user or refreshes the profile fields of an existing one.
// Settings of an existing user are kept.
func (r *UserRepository) Upsert(ctx context.Context, user models.User) error {
	now := utc(r.now())
	query := r.db.Rebind(`
		INSERT INTO users (
			id, username, first_name, language, notification_enabled,
			notification_hour, words_per_day, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			updated_at = excluded.updated_at`)
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.FirstName,
		user.Language,
		user.NotificationEnabled,
		user.NotificationHour,
		user.WordsPerDay,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create/update user: %w", err)
	}
	return nil
}

// SetNotificationHour enables reminders at hour, or disables them when enabled is false.
func (r *UserRepository) SetNotificationHour(ctx context.Context, id int64, hour int, enabled bool) error {
	return r.update(ctx, id, `notification_hour = ?, notification_enabled = ?`, hour, enabled)
}

// SetLanguage changes the language the user is learning.
func (r *UserRepository) SetLanguage(ctx context.Context, id int64, language string) error {
	return r.update(ctx, id, `language = ?`, language)
}

// SetWordsPerDay changes the daily review cap.
func (r *UserRepository) SetWordsPerDay(ctx context.Context, id int64, n int) error {
	return r.update(ctx, id, `words_per_day = ?`, n)
}

func (r *UserRepository) update(ctx context.Context, id int64, set string, args ...interface{}) error {
	query := r.db.Rebind(`UPDATE users SET ` + set + `, updated_at = ? WHERE id = ?`)
	args = append(args, utc(r.now()), id)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return nil
}

// ListForNotification returns users who have notifications enabled at hour
func (r *UserRepository) ListForNotification(ctx context.Context, hour int) ([]models.User, error) {
	users := []models.User{}
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users
		WHERE notification_enabled = ? AND notification_hour = ? ORDER BY id`)
	if err := r.db.SelectContext(ctx, &users, query, true, hour); err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}
	return users, nil
}
