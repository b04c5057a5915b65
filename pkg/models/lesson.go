package models

import "time"

// LessonUnit groups the words taught together; completing it enrolls them for review.
type LessonUnit struct {
	UnitID string `json:"unitId" yaml:"unitId"`
	Title  string `json:"title" yaml:"title"`
	Emoji  string `json:"emoji,omitempty" yaml:"emoji,omitempty"`
	Words  []Word `json:"words" yaml:"words"`
}

// LearningModule is one CEFR level of a language's learning path.
type LearningModule struct {
	Level       string       `json:"level" yaml:"level"` // e.g. "A1", "A2"
	Theme       string       `json:"theme" yaml:"theme"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Units       []LessonUnit `json:"units" yaml:"units"`
}

// CompletedUnit records that a learner finished a lesson unit.
type CompletedUnit struct {
	LearnerID   int64     `json:"learner_id" db:"learner_id"`
	Language    string    `json:"language" db:"language"`
	UnitID      string    `json:"unit_id" db:"unit_id"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}
