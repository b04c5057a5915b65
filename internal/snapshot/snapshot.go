// Package snapshot stores a learner's whole review collection as the ordered
// JSON list the web client keeps under its "chirpolly-srs-data" key.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	srs "github.com/example/chirpolly/internal/spaced_repetition"
	"github.com/example/chirpolly/pkg/models"
)

// KeyPrefix is the storage key used by the web client.
const KeyPrefix = "chirpolly-srs-data"

var (
	// ErrNoSnapshot is returned by Load when nothing is stored for the learner.
	ErrNoSnapshot = errors.New("snapshot: no snapshot stored")
	ErrMalformed  = errors.New("snapshot: malformed snapshot")
)

// Store persists whole collections. Save replaces what was stored before.
type Store interface {
	Load(ctx context.Context, learnerID int64) ([]models.VocabularyItem, error)
	Save(ctx context.Context, learnerID int64, items []models.VocabularyItem) error
}

// Encode serializes items in order. Every item must pass Validate.
func Encode(items []models.VocabularyItem) ([]byte, error) {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}
	if items == nil {
		items = []models.VocabularyItem{}
	}
	return json.Marshal(items)
}

// record mirrors VocabularyItem with the fields older clients may omit.
type record struct {
	ID              string     `json:"id"`
	Language        string     `json:"language"`
	Word            string     `json:"word"`
	Meaning         string     `json:"meaning"`
	Transliteration string     `json:"transliteration"`
	Interval        int        `json:"interval"`
	Repetitions     int        `json:"repetitions"`
	EaseFactor      *float64   `json:"easeFactor"`
	DueDate         time.Time  `json:"dueDate"`
	LastReviewed    *time.Time `json:"lastReviewed"`
	LastQuality     *int       `json:"lastQuality"`
}

// Decode parses a snapshot. Records without a language get the given one;
// the web client never stores it. A record left without a language is
// rejected. Records without an id get the one derived from their language
// and word, missing ease factors get the default, and every record must then
// pass Validate.
func Decode(data []byte, language string) ([]models.VocabularyItem, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	defaults := srs.DefaultConfig()
	items := make([]models.VocabularyItem, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		item := models.VocabularyItem{
			ID:              r.ID,
			Language:        r.Language,
			Word:            r.Word,
			Meaning:         r.Meaning,
			Transliteration: r.Transliteration,
			Interval:        r.Interval,
			Repetitions:     r.Repetitions,
			EaseFactor:      defaults.InitialEase,
			DueDate:         r.DueDate.UTC(),
			LastQuality:     models.NeverRated,
		}
		if item.Language == "" {
			item.Language = language
		}
		if item.Language == "" {
			return nil, fmt.Errorf("%w: record %d (%q) has no language", ErrMalformed, i, item.Word)
		}
		if item.ID == "" && item.Word != "" {
			item.ID = srs.ItemID(item.Language, item.Word)
		}
		if r.EaseFactor != nil {
			item.EaseFactor = *r.EaseFactor
		}
		if r.LastReviewed != nil {
			reviewed := r.LastReviewed.UTC()
			item.LastReviewed = &reviewed
		}
		if r.LastQuality != nil {
			item.LastQuality = *r.LastQuality
		}
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("%w: duplicate item %s (%q)", ErrMalformed, item.ID, item.Word)
		}
		seen[item.ID] = true
		items = append(items, item)
	}
	return items, nil
}
