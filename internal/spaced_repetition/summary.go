package spaced_repetition

import (
	"fmt"
	"time"

	"github.com/example/chirpolly/pkg/models"
)

// Summary aggregates a learner's collection.
type Summary struct {
	Total           int     `json:"total"`
	Due             int     `json:"due"`
	New             int     `json:"new"` // never reviewed
	Mastered        int     `json:"mastered"`
	AverageEase     float64 `json:"average_ease"`
	AverageInterval float64 `json:"average_interval"`
}

// Summarize computes collection statistics as of now.
func (sm *SM2) Summarize(items []models.VocabularyItem, now time.Time) Summary {
	s := Summary{Total: len(items)}
	if len(items) == 0 {
		s.AverageEase = sm.cfg.InitialEase
		return s
	}
	var easeSum float64
	var intervalSum int
	for _, item := range items {
		if !item.DueDate.After(now) {
			s.Due++
		}
		if !item.Reviewed() {
			s.New++
		}
		if sm.IsMastered(item) {
			s.Mastered++
		}
		easeSum += item.EaseFactor
		intervalSum += item.Interval
	}
	s.AverageEase = easeSum / float64(len(items))
	s.AverageInterval = float64(intervalSum) / float64(len(items))
	return s
}

// FormatInterval renders a day count the way review buttons label it:
// "now", "3d", "2w", "4mo", "1y".
func FormatInterval(days int) string {
	switch {
	case days <= 0:
		return "now"
	case days < 14:
		return fmt.Sprintf("%dd", days)
	case days < 60:
		return fmt.Sprintf("%dw", roundHalfUp(float64(days)/7))
	case days < 365:
		return fmt.Sprintf("%dmo", roundHalfUp(float64(days)/30))
	}
	years := float64(days) / 365
	if days%365 == 0 {
		return fmt.Sprintf("%dy", days/365)
	}
	return fmt.Sprintf("%.1fy", years)
}
