package bot

import (
	"fmt"
	"time"
)

// Config represents the configuration for the bot
type Config struct {
	// Cards per /review session when the learner has no words-per-day setting
	ReviewLimit int
	// Reminder hour given to new learners (UTC)
	DefaultNotificationHour int
	// Long polling timeout in seconds
	UpdateTimeout int
	// How long a learner may take on a quiz question before it expires
	QuizTTL time.Duration
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() Config {
	return Config{
		ReviewLimit:             10,
		DefaultNotificationHour: 9,
		UpdateTimeout:           60,
		QuizTTL:                 10 * time.Minute,
	}
}

func (c Config) validate() error {
	switch {
	case c.ReviewLimit < 1:
		return fmt.Errorf("bot: review limit must be positive, got %d", c.ReviewLimit)
	case c.DefaultNotificationHour < 0 || c.DefaultNotificationHour > 23:
		return fmt.Errorf("bot: notification hour must be 0-23, got %d", c.DefaultNotificationHour)
	case c.UpdateTimeout < 0:
		return fmt.Errorf("bot: negative update timeout %d", c.UpdateTimeout)
	}
	return nil
}
