package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/chirpolly/pkg/models"
)

// UnitRepository records which lesson units each learner has completed.
type UnitRepository struct {
	db *sqlx.DB
}

func NewUnitRepository(db *sqlx.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// MarkComplete records the unit and reports whether it was not completed before.
func (r *UnitRepository) MarkComplete(ctx context.Context, unit models.CompletedUnit) (bool, error) {
	query := r.db.Rebind(`
		INSERT INTO completed_units (learner_id, language, unit_id, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (learner_id, language, unit_id) DO NOTHING`)
	res, err := r.db.ExecContext(ctx, query, unit.LearnerID, unit.Language, unit.UnitID, utc(unit.CompletedAt))
	if err != nil {
		return false, fmt.Errorf("failed to mark unit %s complete: %w", unit.UnitID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check unit %s: %w", unit.UnitID, err)
	}
	return n > 0, nil
}

// Completed lists the learner's completed units in a language, oldest first.
func (r *UnitRepository) Completed(ctx context.Context, learnerID int64, language string) ([]models.CompletedUnit, error) {
	units := []models.CompletedUnit{}
	query := r.db.Rebind(`
		SELECT learner_id, language, unit_id, completed_at FROM completed_units
		WHERE learner_id = ? AND language = ?
		ORDER BY completed_at, unit_id`)
	if err := r.db.SelectContext(ctx, &units, query, learnerID, language); err != nil {
		return nil, fmt.Errorf("failed to list completed units: %w", err)
	}
	for i := range units {
		units[i].CompletedAt = utc(units[i].CompletedAt)
	}
	return units, nil
}
