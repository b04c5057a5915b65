package review

import (
	"context"

	srs "github.com/example/chirpolly/internal/spaced_repetition"
	"github.com/example/chirpolly/pkg/models"
)

// Progress describes an active session.
type Progress struct {
	Current   int
	Total     int
	Remaining int
	Lapses    int
}

// Answer is the result of rating the current session item.
type Answer struct {
	Rated models.VocabularyItem
	// Next is the item to show next; zero when Done
	Next     models.VocabularyItem
	Done     bool
	Progress Progress
	// Latest state of every item rated in the session, set when Done
	Reviewed []models.VocabularyItem
}

// StartSession begins a review session over up to limit due items, replacing
// any session the learner had. ok is false when nothing is due.
func (s *Service) StartSession(ctx context.Context, learnerID int64, limit int) (first models.VocabularyItem, ok bool, err error) {
	due, err := s.Due(ctx, learnerID, limit)
	if err != nil {
		return models.VocabularyItem{}, false, err
	}

	unlock := s.lock(learnerID)
	defer unlock()

	if len(due) == 0 {
		s.EndSession(learnerID)
		return models.VocabularyItem{}, false, nil
	}
	session := srs.NewSession(due)
	s.mu.Lock()
	s.sessions[learnerID] = session
	s.mu.Unlock()

	first, _ = session.Current()
	return first, true, nil
}

// Current returns the item the learner's session is waiting on.
func (s *Service) Current(learnerID int64) (models.VocabularyItem, Progress, error) {
	unlock := s.lock(learnerID)
	defer unlock()

	session := s.session(learnerID)
	if session == nil {
		return models.VocabularyItem{}, Progress{}, ErrNoSession
	}
	item, _ := session.Current()
	return item, progressOf(session), nil
}

// Answer rates the current session item. itemID must match it so that a
// stale button press cannot rate the wrong word. An Again rating puts the
// updated item back at the end of the session.
func (s *Service) Answer(ctx context.Context, learnerID int64, itemID string, quality srs.Quality) (Answer, error) {
	if !quality.IsValid() {
		return Answer{}, srs.ErrInvalidQuality
	}
	unlock := s.lock(learnerID)
	defer unlock()

	session := s.session(learnerID)
	if session == nil {
		return Answer{}, ErrNoSession
	}
	current, _ := session.Current()
	if current.ID != itemID {
		return Answer{}, ErrNotCurrent
	}

	rated, err := s.rate(ctx, learnerID, itemID, quality)
	if err != nil {
		return Answer{}, err
	}
	session.Record(rated, quality)

	res := Answer{Rated: rated, Progress: progressOf(session)}
	if next, ok := session.Current(); ok {
		res.Next = next
		return res, nil
	}
	res.Done = true
	res.Reviewed = session.Reviewed()
	s.EndSession(learnerID)
	return res, nil
}

// EndSession drops the learner's session, if any.
func (s *Service) EndSession(learnerID int64) {
	s.mu.Lock()
	delete(s.sessions, learnerID)
	s.mu.Unlock()
}

func (s *Service) session(learnerID int64) *srs.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[learnerID]
}

func progressOf(session *srs.Session) Progress {
	current, total := session.Progress()
	return Progress{
		Current:   current,
		Total:     total,
		Remaining: session.Remaining(),
		Lapses:    session.Lapses(),
	}
}
