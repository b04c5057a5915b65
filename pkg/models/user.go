package models

import "time"

// User represents a learner (Telegram user ID doubles as learner ID)
type User struct {
	ID                  int64     `json:"id" db:"id"`
	Username            string    `json:"username" db:"username"`
	FirstName           string    `json:"first_name" db:"first_name"`
	Language            string    `json:"language" db:"language"` // Language currently being learned
	NotificationEnabled bool      `json:"notification_enabled" db:"notification_enabled"`
	NotificationHour    int       `json:"notification_hour" db:"notification_hour"` // Hour of day for notifications (0-23)
	WordsPerDay         int       `json:"words_per_day" db:"words_per_day"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}
