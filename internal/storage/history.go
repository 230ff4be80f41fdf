package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LastPerformance returns the most recent prior weight/reps recorded for the
// named exercise at the given set position, searching completed sessions
// newest-first and skipping the excluded (current) session. A miss or an
// out-of-range set index returns nil, nil: callers treat the absence of
// history as "no data", never as an error.
func (db *DB) LastPerformance(ctx context.Context, exerciseName string, setIndex int, excludeSessionID uuid.UUID) (*models.Performance, error) {
	// Pick the single most recent matching exercise first; a set index past
	// that exercise's list is a miss, not a fallthrough to older sessions.
	var exerciseID uuid.UUID
	err := db.Pool.QueryRow(ctx,
		`SELECT ex.id
		 FROM session_exercises ex
		 JOIN sessions s ON ex.session_id = s.id
		 WHERE ex.name = $1 AND s.id <> $2 AND s.end_time IS NOT NULL
		 ORDER BY s.end_time DESC, ex.order_index ASC
		 LIMIT 1`,
		exerciseName, excludeSessionID).Scan(&exerciseID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}

	var p models.Performance
	err = db.Pool.QueryRow(ctx,
		`SELECT weight_kg, reps FROM session_sets
		 WHERE exercise_id = $1 AND order_index = $2`,
		exerciseID, setIndex).Scan(&p.WeightKg, &p.Reps)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying set history: %w", err)
	}
	return &p, nil
}
