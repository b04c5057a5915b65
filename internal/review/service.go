// Package review ties the scheduler to storage: it enrolls words from
// completed units, records ratings and runs review sessions.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/chirpolly/internal/logger"
	"github.com/example/chirpolly/internal/snapshot"
	srs "github.com/example/chirpolly/internal/spaced_repetition"
	"github.com/example/chirpolly/pkg/models"
)

var (
	ErrNoSession  = errors.New("review: no active session")
	ErrNotCurrent = errors.New("review: item is not the current session item")
)

// Vocabulary stores learners' collections.
type Vocabulary interface {
	List(ctx context.Context, learnerID int64) ([]models.VocabularyItem, error)
	Get(ctx context.Context, learnerID int64, itemID string) (models.VocabularyItem, error)
	Upsert(ctx context.Context, learnerID int64, item models.VocabularyItem) error
	InsertMissing(ctx context.Context, learnerID int64, items []models.VocabularyItem) ([]models.VocabularyItem, error)
	ReplaceAll(ctx context.Context, learnerID int64, items []models.VocabularyItem) error
}

// History stores review logs.
type History interface {
	Append(ctx context.Context, log *models.ReviewLog) error
	ListForLearner(ctx context.Context, learnerID int64) ([]models.ReviewLog, error)
	DeleteForLearner(ctx context.Context, learnerID int64) (int64, error)
	Activity(ctx context.Context, learnerID int64, start, end time.Time) (models.ReviewActivity, error)
}

// Units records completed lesson units.
type Units interface {
	MarkComplete(ctx context.Context, unit models.CompletedUnit) (bool, error)
	Completed(ctx context.Context, learnerID int64, language string) ([]models.CompletedUnit, error)
}

// Catalog looks up lesson units.
type Catalog interface {
	Unit(language, unitID string) (models.LessonUnit, error)
}

// Deps are the collaborators of a Service. Snapshots and Clock are optional.
type Deps struct {
	Scheduler  *srs.SM2
	Vocabulary Vocabulary
	History    History
	Units      Units
	Catalog    Catalog
	// Mirror of every collection after each write
	Snapshots snapshot.Store
	Log       *logger.Logger
	Clock     func() time.Time
}

// Service is safe for concurrent use. Writes for one learner are serialized.
type Service struct {
	sm        *srs.SM2
	vocab     Vocabulary
	history   History
	units     Units
	catalog   Catalog
	snapshots snapshot.Store
	log       *logger.Logger
	now       func() time.Time

	locks sync.Map // learner ID -> *sync.Mutex

	mu       sync.Mutex
	sessions map[int64]*srs.Session
}

func New(d Deps) (*Service, error) {
	switch {
	case d.Scheduler == nil:
		return nil, fmt.Errorf("review: scheduler required")
	case d.Vocabulary == nil || d.History == nil || d.Units == nil:
		return nil, fmt.Errorf("review: repositories required")
	case d.Catalog == nil:
		return nil, fmt.Errorf("review: catalog required")
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return &Service{
		sm:        d.Scheduler,
		vocab:     d.Vocabulary,
		history:   d.History,
		units:     d.Units,
		catalog:   d.Catalog,
		snapshots: d.Snapshots,
		log:       d.Log.With("service", "review"),
		now:       func() time.Time { return d.Clock().UTC() },
		sessions:  make(map[int64]*srs.Session),
	}, nil
}

func (s *Service) lock(learnerID int64) func() {
	v, _ := s.locks.LoadOrStore(learnerID, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Items returns the learner's collection.
func (s *Service) Items(ctx context.Context, learnerID int64) ([]models.VocabularyItem, error) {
	return s.vocab.List(ctx, learnerID)
}

// Due returns up to limit due items in review priority order.
func (s *Service) Due(ctx context.Context, learnerID int64, limit int) ([]models.VocabularyItem, error) {
	items, err := s.vocab.List(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return srs.NextItems(items, s.now(), limit), nil
}

// DueCount returns how many items are due now.
func (s *Service) DueCount(ctx context.Context, learnerID int64) (int, error) {
	items, err := s.vocab.List(ctx, learnerID)
	if err != nil {
		return 0, err
	}
	return len(srs.SelectDue(items, s.now())), nil
}

// Stats summarizes the learner's collection.
func (s *Service) Stats(ctx context.Context, learnerID int64) (srs.Summary, error) {
	items, err := s.vocab.List(ctx, learnerID)
	if err != nil {
		return srs.Summary{}, err
	}
	return s.sm.Summarize(items, s.now()), nil
}

// Activity sums up the learner's reviews of the last days days.
func (s *Service) Activity(ctx context.Context, learnerID int64, days int) (models.ReviewActivity, error) {
	if days < 1 {
		return models.ReviewActivity{}, fmt.Errorf("review: days must be positive, got %d", days)
	}
	end := s.now()
	return s.history.Activity(ctx, learnerID, end.AddDate(0, 0, -days), end.Add(time.Nanosecond))
}

// CompleteUnit records the unit as completed and enrolls its words that are
// not in the collection yet. It returns the newly enrolled items.
func (s *Service) CompleteUnit(ctx context.Context, learnerID int64, language, unitID string) ([]models.VocabularyItem, error) {
	unit, err := s.catalog.Unit(language, unitID)
	if err != nil {
		return nil, err
	}

	unlock := s.lock(learnerID)
	defer unlock()

	now := s.now()
	if _, err := s.units.MarkComplete(ctx, models.CompletedUnit{
		LearnerID:   learnerID,
		Language:    language,
		UnitID:      unitID,
		CompletedAt: now,
	}); err != nil {
		return nil, err
	}

	candidates := make([]models.VocabularyItem, 0, len(unit.Words))
	for _, w := range unit.Words {
		candidates = append(candidates, s.sm.Initialize(language, w, now))
	}
	added, err := s.vocab.InsertMissing(ctx, learnerID, candidates)
	if err != nil {
		return nil, err
	}
	s.log.Info("unit completed", "learner_id", learnerID, "language", language, "unit", unitID, "enrolled", len(added))
	if len(added) > 0 {
		s.mirror(ctx, learnerID)
	}
	return added, nil
}

// CompletedUnits lists the learner's completed units in a language.
func (s *Service) CompletedUnits(ctx context.Context, learnerID int64, language string) ([]models.CompletedUnit, error) {
	return s.units.Completed(ctx, learnerID, language)
}

// Rate applies a rating to an item, stores the new state and logs the review.
func (s *Service) Rate(ctx context.Context, learnerID int64, itemID string, quality srs.Quality) (models.VocabularyItem, error) {
	if !quality.IsValid() {
		return models.VocabularyItem{}, fmt.Errorf("%w: %d", srs.ErrInvalidQuality, int(quality))
	}
	unlock := s.lock(learnerID)
	defer unlock()
	return s.rate(ctx, learnerID, itemID, quality)
}

func (s *Service) rate(ctx context.Context, learnerID int64, itemID string, quality srs.Quality) (models.VocabularyItem, error) {
	item, err := s.vocab.Get(ctx, learnerID, itemID)
	if err != nil {
		return models.VocabularyItem{}, err
	}
	now := s.now()
	next, err := s.sm.Rate(item, quality, now)
	if err != nil {
		return models.VocabularyItem{}, err
	}
	if err := s.vocab.Upsert(ctx, learnerID, next); err != nil {
		return models.VocabularyItem{}, err
	}
	entry := &models.ReviewLog{
		LearnerID:  learnerID,
		ItemID:     next.ID,
		Quality:    int(quality),
		ReviewedAt: now,
		Interval:   next.Interval,
		EaseFactor: next.EaseFactor,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		return models.VocabularyItem{}, err
	}
	s.log.Debug("item rated", "learner_id", learnerID, "item", next.ID, "quality", quality.String(), "interval", next.Interval)
	s.mirror(ctx, learnerID)
	return next, nil
}

// Preview returns the outcome of each rating for an item without storing anything.
func (s *Service) Preview(ctx context.Context, learnerID int64, itemID string) (map[srs.Quality]models.VocabularyItem, error) {
	item, err := s.vocab.Get(ctx, learnerID, itemID)
	if err != nil {
		return nil, err
	}
	return s.sm.Preview(item, s.now()), nil
}

// Rebuild recomputes every reviewed item from its logs with the current
// scheduler settings. Items without logs are kept as they are. It returns the
// number of rebuilt items.
func (s *Service) Rebuild(ctx context.Context, learnerID int64) (int, error) {
	unlock := s.lock(learnerID)
	defer unlock()

	items, err := s.vocab.List(ctx, learnerID)
	if err != nil {
		return 0, err
	}
	logs, err := s.history.ListForLearner(ctx, learnerID)
	if err != nil {
		return 0, err
	}
	byItem := make(map[string][]models.ReviewLog)
	for _, l := range logs {
		byItem[l.ItemID] = append(byItem[l.ItemID], l)
	}

	rebuilt := 0
	for i, item := range items {
		itemLogs := byItem[item.ID]
		if len(itemLogs) == 0 {
			continue
		}
		initial := s.sm.Initialize(item.Language, models.Word{
			Word:            item.Word,
			Meaning:         item.Meaning,
			Transliteration: item.Transliteration,
		}, itemLogs[0].ReviewedAt)
		initial.ID = item.ID
		next, err := s.sm.Replay(initial, itemLogs)
		if err != nil {
			return 0, fmt.Errorf("failed to rebuild %s: %w", item.Word, err)
		}
		items[i] = next
		rebuilt++
	}
	if err := s.vocab.ReplaceAll(ctx, learnerID, items); err != nil {
		return 0, err
	}
	s.log.Info("collection rebuilt", "learner_id", learnerID, "items", rebuilt)
	s.mirror(ctx, learnerID)
	return rebuilt, nil
}

// Export encodes the learner's collection as a snapshot.
func (s *Service) Export(ctx context.Context, learnerID int64) ([]byte, error) {
	items, err := s.vocab.List(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return snapshot.Encode(items)
}

// Import replaces the learner's collection with a decoded snapshot and
// returns the number of items stored. Records without a language are
// assigned language. The review history is dropped with the old collection,
// so Rebuild never replays it over imported state.
func (s *Service) Import(ctx context.Context, learnerID int64, language string, data []byte) (int, error) {
	items, err := snapshot.Decode(data, language)
	if err != nil {
		return 0, err
	}
	unlock := s.lock(learnerID)
	defer unlock()

	s.EndSession(learnerID)
	if err := s.vocab.ReplaceAll(ctx, learnerID, items); err != nil {
		return 0, err
	}
	dropped, err := s.history.DeleteForLearner(ctx, learnerID)
	if err != nil {
		return 0, err
	}
	s.log.Info("collection imported", "learner_id", learnerID, "items", len(items), "dropped_logs", dropped)
	s.mirror(ctx, learnerID)
	return len(items), nil
}

// mirror copies the collection to the snapshot store. Failures are logged;
// the database stays the source of truth.
func (s *Service) mirror(ctx context.Context, learnerID int64) {
	if s.snapshots == nil {
		return
	}
	items, err := s.vocab.List(ctx, learnerID)
	if err == nil {
		err = s.snapshots.Save(ctx, learnerID, items)
	}
	if err != nil {
		s.log.Warn("snapshot mirror failed", "learner_id", learnerID, "error", err)
	}
}
