package spaced_repetition

import "github.com/example/chirpolly/pkg/models"

// Session presents due items one at a time. An item rated Again goes back to
// the end of the queue in its updated state and is shown again before the
// session ends.
//
// A Session is not safe for concurrent use.
type Session struct {
	queue    []models.VocabularyItem
	pos      int
	reviewed map[string]models.VocabularyItem
	order    []string
	again    int
}

// NewSession starts a session over items in the given order.
func NewSession(items []models.VocabularyItem) *Session {
	queue := make([]models.VocabularyItem, len(items))
	copy(queue, items)
	return &Session{
		queue:    queue,
		reviewed: make(map[string]models.VocabularyItem, len(items)),
	}
}

// Current returns the item to present next; ok is false once the session is done.
func (s *Session) Current() (item models.VocabularyItem, ok bool) {
	if s.Done() {
		return models.VocabularyItem{}, false
	}
	return s.queue[s.pos], true
}

// Record stores the rated state of the current item and advances the queue.
func (s *Session) Record(updated models.VocabularyItem, quality Quality) {
	if s.Done() {
		return
	}
	if _, seen := s.reviewed[updated.ID]; !seen {
		s.order = append(s.order, updated.ID)
	}
	s.reviewed[updated.ID] = updated
	if quality == QualityAgain {
		s.queue = append(s.queue, updated)
		s.again++
	}
	s.pos++
}

// Done reports whether every queued entry has been rated.
func (s *Session) Done() bool {
	return s.pos >= len(s.queue)
}

// Progress returns the 1-based position of the current entry and the queue length.
func (s *Session) Progress() (current, total int) {
	return min(s.pos+1, len(s.queue)), len(s.queue)
}

// Remaining returns the number of entries still to rate.
func (s *Session) Remaining() int {
	return len(s.queue) - s.pos
}

// Lapses returns how many Again ratings the session has seen.
func (s *Session) Lapses() int {
	return s.again
}

// Reviewed returns the latest state of every rated item, in first-rated order.
func (s *Session) Reviewed() []models.VocabularyItem {
	out := make([]models.VocabularyItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.reviewed[id])
	}
	return out
}
