package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/chirpolly/pkg/models"
)

// ReviewLogRepository keeps the append-only rating history.
type ReviewLogRepository struct {
	db *sqlx.DB
}

func NewReviewLogRepository(db *sqlx.DB) *ReviewLogRepository {
	return &ReviewLogRepository{db: db}
}

// Append stores a log entry and sets its ID.
func (r *ReviewLogRepository) Append(ctx context.Context, log *models.ReviewLog) error {
	query := r.db.Rebind(`
		INSERT INTO review_logs (learner_id, item_id, quality, reviewed_at, interval_days, ease_factor)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query,
		log.LearnerID,
		log.ItemID,
		log.Quality,
		utc(log.ReviewedAt),
		log.Interval,
		log.EaseFactor,
	).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("failed to append review log: %w", err)
	}
	return nil
}

// ListForItem returns an item's history, oldest first.
func (r *ReviewLogRepository) ListForItem(ctx context.Context, learnerID int64, itemID string) ([]models.ReviewLog, error) {
	return r.list(ctx, `WHERE learner_id = ? AND item_id = ?`, learnerID, itemID)
}

// ListForLearner returns every log of the learner, oldest first.
func (r *ReviewLogRepository) ListForLearner(ctx context.Context, learnerID int64) ([]models.ReviewLog, error) {
	return r.list(ctx, `WHERE learner_id = ?`, learnerID)
}

// DeleteForLearner removes the learner's whole history and returns the number
// of removed logs.
func (r *ReviewLogRepository) DeleteForLearner(ctx context.Context, learnerID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM review_logs WHERE learner_id = ?`), learnerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete review logs: %w", err)
	}
	return res.RowsAffected()
}

func (r *ReviewLogRepository) list(ctx context.Context, where string, args ...interface{}) ([]models.ReviewLog, error) {
	logs := []models.ReviewLog{}
	query := r.db.Rebind(`
		SELECT id, learner_id, item_id, quality, reviewed_at, interval_days, ease_factor
		FROM review_logs ` + where + `
		ORDER BY reviewed_at, id`)
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list review logs: %w", err)
	}
	for i := range logs {
		logs[i].ReviewedAt = utc(logs[i].ReviewedAt)
	}
	return logs, nil
}

// Activity returns review statistics for a learner within [start, end).
func (r *ReviewLogRepository) Activity(ctx context.Context, learnerID int64, start, end time.Time) (models.ReviewActivity, error) {
	var activity models.ReviewActivity
	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS reviews,
			COALESCE(SUM(CASE WHEN quality >= 3 THEN 1 ELSE 0 END), 0) AS recalled,
			COALESCE(SUM(CASE WHEN quality = 0 THEN 1 ELSE 0 END), 0) AS lapses,
			COUNT(DISTINCT item_id) AS words
		FROM review_logs
		WHERE learner_id = ? AND reviewed_at >= ? AND reviewed_at < ?`)
	if err := r.db.GetContext(ctx, &activity, query, learnerID, utc(start), utc(end)); err != nil {
		return models.ReviewActivity{}, fmt.Errorf("failed to get review activity: %w", err)
	}
	return activity, nil
}
