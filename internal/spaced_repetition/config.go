package spaced_repetition

import "fmt"

// Config holds every tunable of the SM-2 scheduler.
// Intervals are in days.
type Config struct {
	// Ease factor assigned to new items
	InitialEase float64 `json:"initial_ease" toml:"initial_ease"`
	// Lower bound for the ease factor
	MinEase float64 `json:"min_ease" toml:"min_ease"`
	// Interval after the first successful Good review
	FirstInterval int `json:"first_interval" toml:"first_interval"`
	// Interval after the second successful Good review
	SecondInterval int `json:"second_interval" toml:"second_interval"`
	// Fixed interval after a Hard review
	HardInterval int `json:"hard_interval" toml:"hard_interval"`
	// Interval after Again; 0 makes the item due again immediately
	RelearnInterval int `json:"relearn_interval" toml:"relearn_interval"`
	// Interval after the first successful Easy review
	EasyFirstInterval int `json:"easy_first_interval" toml:"easy_first_interval"`
	// Extra multiplier applied to Easy growth
	EasyBonus float64 `json:"easy_bonus" toml:"easy_bonus"`
	// Upper bound for any interval
	MaxInterval int `json:"max_interval" toml:"max_interval"`
	// Consecutive successes needed before an item counts as mastered
	MasteredRepetitions int `json:"mastered_repetitions" toml:"mastered_repetitions"`
	// Minimum interval in days of a mastered item
	MasteredInterval int `json:"mastered_interval" toml:"mastered_interval"`
}

// DefaultConfig returns the classic SM-2 settings.
func DefaultConfig() Config {
	return Config{
		InitialEase:       2.5,
		MinEase:           1.3,
		FirstInterval:     1,
		SecondInterval:    6,
		HardInterval:      2,
		RelearnInterval:   1,
		EasyFirstInterval: 4,
		EasyBonus:         1.3,
		MaxInterval:       36500,

		MasteredRepetitions: 5,
		MasteredInterval:    30,
	}
}

// Validate checks that the settings describe a usable scheduler.
func (c Config) Validate() error {
	switch {
	case c.MinEase < 1:
		return fmt.Errorf("%w: min ease %.2f must be at least 1", ErrInvalidConfig, c.MinEase)
	case c.InitialEase < c.MinEase:
		return fmt.Errorf("%w: initial ease %.2f below min ease %.2f", ErrInvalidConfig, c.InitialEase, c.MinEase)
	case c.FirstInterval < 1:
		return fmt.Errorf("%w: first interval %d must be positive", ErrInvalidConfig, c.FirstInterval)
	case c.SecondInterval < c.FirstInterval:
		return fmt.Errorf("%w: second interval %d below first interval %d", ErrInvalidConfig, c.SecondInterval, c.FirstInterval)
	case c.HardInterval < 1:
		return fmt.Errorf("%w: hard interval %d must be positive", ErrInvalidConfig, c.HardInterval)
	case c.RelearnInterval < 0:
		return fmt.Errorf("%w: relearn interval %d must not be negative", ErrInvalidConfig, c.RelearnInterval)
	case c.EasyFirstInterval < c.FirstInterval:
		return fmt.Errorf("%w: easy first interval %d below first interval %d", ErrInvalidConfig, c.EasyFirstInterval, c.FirstInterval)
	case c.EasyBonus < 1:
		return fmt.Errorf("%w: easy bonus %.2f must be at least 1", ErrInvalidConfig, c.EasyBonus)
	case c.MaxInterval < c.SecondInterval:
		return fmt.Errorf("%w: max interval %d below second interval %d", ErrInvalidConfig, c.MaxInterval, c.SecondInterval)
	case c.MaxInterval < c.EasyFirstInterval || c.MaxInterval < c.HardInterval || c.MaxInterval < c.RelearnInterval:
		return fmt.Errorf("%w: max interval %d below a fixed interval", ErrInvalidConfig, c.MaxInterval)
	case c.MasteredRepetitions < 1 || c.MasteredInterval < 1:
		return fmt.Errorf("%w: mastery thresholds must be positive", ErrInvalidConfig)
	}
	return nil
}
