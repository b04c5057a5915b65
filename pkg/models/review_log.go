package models

import "time"

// ReviewLog records a single rating of a vocabulary item
type ReviewLog struct {
	ID         int64     `json:"id" db:"id"`
	LearnerID  int64     `json:"learner_id" db:"learner_id"`
	ItemID     string    `json:"item_id" db:"item_id"`
	Quality    int       `json:"quality" db:"quality"`
	ReviewedAt time.Time `json:"reviewed_at" db:"reviewed_at"`
	Interval   int       `json:"interval" db:"interval_days"` // Interval chosen by this review
	EaseFactor float64   `json:"ease_factor" db:"ease_factor"`
}

// ReviewActivity sums up the reviews a learner did in a period.
type ReviewActivity struct {
	Reviews  int `json:"reviews" db:"reviews"`
	Recalled int `json:"recalled" db:"recalled"` // rated Hard or better
	Lapses   int `json:"lapses" db:"lapses"`
	Words    int `json:"words" db:"words"` // distinct items reviewed
}
