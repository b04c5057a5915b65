package spaced_repetition

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/example/chirpolly/pkg/models"
)

// SM2 implements the SuperMemo-2 algorithm for spaced repetition.
//
// Every method is a pure function of its arguments and the immutable Config:
// no wall-clock reads, no I/O, and inputs are never mutated. An *SM2 is safe
// for concurrent use.
type SM2 struct {
	cfg Config
}

// NewSM2 creates a scheduler from cfg, rejecting settings that fail Validate.
func NewSM2(cfg Config) (*SM2, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SM2{cfg: cfg}, nil
}

// NewDefaultSM2 creates a scheduler with DefaultConfig.
func NewDefaultSM2() *SM2 {
	return &SM2{cfg: DefaultConfig()}
}

// Config returns the scheduler settings.
func (sm *SM2) Config() Config {
	return sm.cfg
}

// Initialize creates the review state for a word the learner has just met.
// The item is due immediately.
func (sm *SM2) Initialize(language string, word models.Word, now time.Time) models.VocabularyItem {
	return models.VocabularyItem{
		ID:              ItemID(language, word.Word),
		Language:        language,
		Word:            word.Word,
		Meaning:         word.Meaning,
		Transliteration: word.Transliteration,
		Interval:        0,
		Repetitions:     0,
		EaseFactor:      sm.cfg.InitialEase,
		DueDate:         now,
		LastQuality:     models.NeverRated,
	}
}

// Rate returns the item's next state after a review rated quality at now.
// Ratings other than Again, Hard, Good and Easy are rejected with ErrInvalidQuality.
func (sm *SM2) Rate(item models.VocabularyItem, quality Quality, now time.Time) (models.VocabularyItem, error) {
	if !quality.IsValid() {
		return item, fmt.Errorf("%w: %d", ErrInvalidQuality, int(quality))
	}

	// Repair corrupt stored state before using it
	ease := sm.clampEase(item.EaseFactor)
	reps := max(item.Repetitions, 0)
	prev := min(max(item.Interval, 0), sm.cfg.MaxInterval)

	var interval int
	switch quality {
	case QualityAgain:
		reps = 0
		interval = sm.cfg.RelearnInterval
	case QualityHard:
		reps++
		interval = sm.cfg.HardInterval
	case QualityGood:
		reps++
		interval = sm.grow(reps, prev, ease, false)
	case QualityEasy:
		reps++
		interval = sm.grow(reps, prev, ease, true)
	}
	interval = min(interval, sm.cfg.MaxInterval)

	next := item
	next.Repetitions = reps
	next.Interval = interval
	next.EaseFactor = sm.nextEase(ease, quality)
	next.DueDate = now.AddDate(0, 0, interval)
	reviewed := now
	next.LastReviewed = &reviewed
	next.LastQuality = int(quality)
	return next, nil
}

// grow computes the interval after a Good or Easy review.
// reps is the repetition count including this review.
func (sm *SM2) grow(reps, prev int, ease float64, easy bool) int {
	bonus := 1.0
	if easy {
		bonus = sm.cfg.EasyBonus
	}
	switch reps {
	case 1:
		if easy {
			return sm.cfg.EasyFirstInterval
		}
		return sm.cfg.FirstInterval
	case 2:
		return roundHalfUp(float64(sm.cfg.SecondInterval) * bonus)
	}
	grown := float64(prev) * ease * bonus
	if grown >= float64(sm.cfg.MaxInterval) {
		return sm.cfg.MaxInterval
	}
	next := roundHalfUp(grown)
	if next <= prev {
		// Short intervals can round back to themselves
		next = prev + 1
	}
	return next
}

// nextEase applies the SM-2 ease update, bounded below by MinEase.
func (sm *SM2) nextEase(ease float64, quality Quality) float64 {
	d := 5 - float64(quality)
	return sm.clampEase(ease + (0.1 - d*(0.08+d*0.02)))
}

func (sm *SM2) clampEase(ease float64) float64 {
	if math.IsNaN(ease) || math.IsInf(ease, 0) || ease < sm.cfg.MinEase {
		return sm.cfg.MinEase
	}
	return ease
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Preview returns the outcome of every valid rating, keyed by quality.
func (sm *SM2) Preview(item models.VocabularyItem, now time.Time) map[Quality]models.VocabularyItem {
	out := make(map[Quality]models.VocabularyItem, len(Qualities))
	for _, q := range Qualities {
		next, _ := sm.Rate(item, q, now)
		out[q] = next
	}
	return out
}

// Replay rebuilds an item's state by applying its review logs in order to the
// initial state. Logs for another item return ErrItemMismatch.
func (sm *SM2) Replay(initial models.VocabularyItem, logs []models.ReviewLog) (models.VocabularyItem, error) {
	item := initial
	for _, l := range logs {
		if l.ItemID != item.ID {
			return models.VocabularyItem{}, fmt.Errorf("%w: item %s, log %s", ErrItemMismatch, item.ID, l.ItemID)
		}
		next, err := sm.Rate(item, Quality(l.Quality), l.ReviewedAt)
		if err != nil {
			return models.VocabularyItem{}, fmt.Errorf("failed to replay log %d: %w", l.ID, err)
		}
		item = next
	}
	return item, nil
}

// IsMastered determines if a word is considered "mastered":
// enough consecutive successes, a latest rating of Good or better,
// and a long enough interval.
func (sm *SM2) IsMastered(item models.VocabularyItem) bool {
	return item.Repetitions >= sm.cfg.MasteredRepetitions &&
		item.LastQuality >= int(QualityGood) &&
		item.Interval >= sm.cfg.MasteredInterval
}

// SelectDue returns the items whose due date is at or before now, in input order.
func SelectDue(items []models.VocabularyItem, now time.Time) []models.VocabularyItem {
	due := make([]models.VocabularyItem, 0, len(items))
	for _, item := range items {
		if !item.DueDate.After(now) {
			due = append(due, item)
		}
	}
	return due
}

// NextItems returns up to limit due items (all of them when limit <= 0),
// ordered by priority:
//  1. words that have never been reviewed
//  2. words with the lowest ease factor (hardest words)
//  3. words that are the most overdue
func NextItems(items []models.VocabularyItem, now time.Time, limit int) []models.VocabularyItem {
	due := SelectDue(items, now)
	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if a.Reviewed() != b.Reviewed() {
			return !a.Reviewed()
		}
		if a.EaseFactor != b.EaseFactor {
			return a.EaseFactor < b.EaseFactor
		}
		return a.DueDate.Before(b.DueDate)
	})
	if limit > 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}
