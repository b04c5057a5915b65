package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/chirpolly/pkg/models"
)

const itemColumns = `item_id, language, word, meaning, transliteration, interval_days,
	repetitions, ease_factor, due_date, last_reviewed, last_quality`

// VocabularyRepository stores each learner's review collection.
// Items keep the order in which they were first added.
type VocabularyRepository struct {
	db *sqlx.DB
}

func NewVocabularyRepository(db *sqlx.DB) *VocabularyRepository {
	return &VocabularyRepository{db: db}
}

// List returns the learner's collection in insertion order.
func (r *VocabularyRepository) List(ctx context.Context, learnerID int64) ([]models.VocabularyItem, error) {
	items := []models.VocabularyItem{}
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM vocabulary_items
		WHERE learner_id = ? ORDER BY position`)
	if err := r.db.SelectContext(ctx, &items, query, learnerID); err != nil {
		return nil, fmt.Errorf("failed to list vocabulary: %w", err)
	}
	for i := range items {
		normalize(&items[i])
	}
	return items, nil
}

// Get returns one item, or ErrNotFound.
func (r *VocabularyRepository) Get(ctx context.Context, learnerID int64, itemID string) (models.VocabularyItem, error) {
	var item models.VocabularyItem
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM vocabulary_items
		WHERE learner_id = ? AND item_id = ?`)
	err := r.db.GetContext(ctx, &item, query, learnerID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VocabularyItem{}, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	if err != nil {
		return models.VocabularyItem{}, fmt.Errorf("failed to get item: %w", err)
	}
	normalize(&item)
	return item, nil
}

// Upsert inserts the item or replaces the stored state of the item with the same ID.
func (r *VocabularyRepository) Upsert(ctx context.Context, learnerID int64, item models.VocabularyItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	query := r.db.Rebind(insertItem + `
		ON CONFLICT (learner_id, item_id) DO UPDATE SET
			language = excluded.language,
			word = excluded.word,
			meaning = excluded.meaning,
			transliteration = excluded.transliteration,
			interval_days = excluded.interval_days,
			repetitions = excluded.repetitions,
			ease_factor = excluded.ease_factor,
			due_date = excluded.due_date,
			last_reviewed = excluded.last_reviewed,
			last_quality = excluded.last_quality`)
	if _, err := r.db.ExecContext(ctx, query, itemArgs(learnerID, item)...); err != nil {
		return fmt.Errorf("failed to upsert item %s: %w", item.ID, err)
	}
	return nil
}

// InsertMissing adds the items whose IDs are not yet in the collection and
// returns the ones it added. Existing items are left untouched.
func (r *VocabularyRepository) InsertMissing(ctx context.Context, learnerID int64, items []models.VocabularyItem) ([]models.VocabularyItem, error) {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := tx.Rebind(insertItem + ` ON CONFLICT (learner_id, item_id) DO NOTHING`)
	added := make([]models.VocabularyItem, 0, len(items))
	for _, item := range items {
		res, err := tx.ExecContext(ctx, query, itemArgs(learnerID, item)...)
		if err != nil {
			return nil, fmt.Errorf("failed to insert item %s: %w", item.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check insert of item %s: %w", item.ID, err)
		}
		if n > 0 {
			added = append(added, item)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return added, nil
}

// ReplaceAll swaps the learner's whole collection for items in one transaction.
func (r *VocabularyRepository) ReplaceAll(ctx context.Context, learnerID int64, items []models.VocabularyItem) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM vocabulary_items WHERE learner_id = ?`), learnerID); err != nil {
		return fmt.Errorf("failed to clear vocabulary: %w", err)
	}
	query := tx.Rebind(insertItem)
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, query, itemArgs(learnerID, item)...); err != nil {
			return fmt.Errorf("failed to insert item %s: %w", item.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Count returns the size of the learner's collection.
func (r *VocabularyRepository) Count(ctx context.Context, learnerID int64) (int, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM vocabulary_items WHERE learner_id = ?`)
	if err := r.db.GetContext(ctx, &n, query, learnerID); err != nil {
		return 0, fmt.Errorf("failed to count vocabulary: %w", err)
	}
	return n, nil
}

// New items go after the learner's last one.
const insertItem = `
	INSERT INTO vocabulary_items (
		learner_id, item_id, position, language, word, meaning, transliteration,
		interval_days, repetitions, ease_factor, due_date, last_reviewed, last_quality
	) VALUES (
		?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM vocabulary_items WHERE learner_id = ?),
		?, ?, ?, ?, ?, ?, ?, ?, ?, ?
	)`

func itemArgs(learnerID int64, item models.VocabularyItem) []interface{} {
	return []interface{}{
		learnerID, item.ID, learnerID,
		item.Language, item.Word, item.Meaning, item.Transliteration,
		item.Interval, item.Repetitions, item.EaseFactor,
		utc(item.DueDate), utcPtr(item.LastReviewed), item.LastQuality,
	}
}

func normalize(item *models.VocabularyItem) {
	item.DueDate = utc(item.DueDate)
	item.LastReviewed = utcPtr(item.LastReviewed)
}
