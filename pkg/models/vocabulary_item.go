package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidItem is returned by Validate for records missing required fields.
var ErrInvalidItem = errors.New("models: invalid vocabulary item")

// NeverRated is the LastQuality value of an item that has not been reviewed yet.
const NeverRated = -1

// VocabularyItem tracks a learner's review state for a single word.
//
// Required fields for a persisted item: ID, Word, DueDate (non-zero),
// Interval >= 0 and Repetitions >= 0. EaseFactor below the scheduler floor is
// tolerated and clamped on the next review.
type VocabularyItem struct {
	ID              string     `json:"id" db:"item_id"`
	Language        string     `json:"language" db:"language"`
	Word            string     `json:"word" db:"word"`
	Meaning         string     `json:"meaning" db:"meaning"`
	Transliteration string     `json:"transliteration" db:"transliteration"`
	Interval        int        `json:"interval" db:"interval_days"`      // Current interval in days
	Repetitions     int        `json:"repetitions" db:"repetitions"`     // Consecutive successful reviews
	EaseFactor      float64    `json:"easeFactor" db:"ease_factor"`      // SM-2 EF parameter
	DueDate         time.Time  `json:"dueDate" db:"due_date"`            // Earliest next presentation
	LastReviewed    *time.Time `json:"lastReviewed,omitempty" db:"last_reviewed"`
	LastQuality     int        `json:"lastQuality" db:"last_quality"` // 0-5 rating of last recall, -1 if never rated
}

// Validate reports whether the item carries every field the scheduler needs.
func (v VocabularyItem) Validate() error {
	switch {
	case v.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	case v.Word == "":
		return fmt.Errorf("%w: %s: missing word", ErrInvalidItem, v.ID)
	case v.DueDate.IsZero():
		return fmt.Errorf("%w: %s: missing due date", ErrInvalidItem, v.ID)
	case v.Interval < 0:
		return fmt.Errorf("%w: %s: negative interval %d", ErrInvalidItem, v.ID, v.Interval)
	case v.Repetitions < 0:
		return fmt.Errorf("%w: %s: negative repetitions %d", ErrInvalidItem, v.ID, v.Repetitions)
	}
	return nil
}

// Reviewed reports whether the item has been rated at least once.
func (v VocabularyItem) Reviewed() bool {
	return v.LastReviewed != nil
}
