package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SessionSummary is a completed-session listing row.
type SessionSummary struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Type          string     `json:"type,omitempty"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	DurationSec   int        `json:"duration_sec"`
	ExerciseCount int        `json:"exercise_count"`
	SetCount      int        `json:"set_count"`
}

// InsertSession inserts a session with its full exercise and set tree.
func (db *DB) InsertSession(ctx context.Context, s *models.Session) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO sessions (id, title, session_type, start_time, end_time, duration_sec)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.Title, s.Type, s.StartTime, s.EndTime, s.DurationSec); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	if err := insertExerciseTree(ctx, tx, s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SaveSession replaces the stored session tree with the in-memory one. The
// session row is upserted; exercises and sets are rewritten wholesale, which
// keeps order indices and completion flags exactly as the engine left them.
func (db *DB) SaveSession(ctx context.Context, s *models.Session) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO sessions (id, title, session_type, start_time, end_time, duration_sec)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   session_type = EXCLUDED.session_type,
		   start_time = EXCLUDED.start_time,
		   end_time = EXCLUDED.end_time,
		   duration_sec = EXCLUDED.duration_sec`,
		s.ID, s.Title, s.Type, s.StartTime, s.EndTime, s.DurationSec); err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	// Cascade removes the old sets too.
	if _, err := tx.Exec(ctx,
		`DELETE FROM session_exercises WHERE session_id = $1`, s.ID); err != nil {
		return fmt.Errorf("clearing exercises: %w", err)
	}

	if err := insertExerciseTree(ctx, tx, s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertExerciseTree(ctx context.Context, tx pgx.Tx, s *models.Session) error {
	for _, ex := range s.Exercises {
		if _, err := tx.Exec(ctx,
			`INSERT INTO session_exercises (id, session_id, name, kind, order_index, is_superset, superset_group_id, rest_seconds)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			ex.ID, s.ID, ex.Name, ex.Kind, ex.OrderIndex, ex.IsSuperset, ex.SupersetGroupID, ex.RestSeconds); err != nil {
			return fmt.Errorf("inserting exercise %s: %w", ex.Name, err)
		}
		if len(ex.Sets) == 0 {
			continue
		}

		query := `INSERT INTO session_sets (id, exercise_id, order_index, weight_kg, reps, duration_sec, speed_kmh, incline, is_completed) VALUES `
		args := make([]any, 0, len(ex.Sets)*9)
		valueStrings := make([]string, 0, len(ex.Sets))
		for i, st := range ex.Sets {
			base := i * 9
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
			))
			args = append(args, st.ID, ex.ID, st.OrderIndex, st.WeightKg, st.Reps,
				st.DurationSec, st.SpeedKmh, st.Incline, st.IsCompleted)
		}
		query += strings.Join(valueStrings, ",")

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting sets for %s: %w", ex.Name, err)
		}
	}
	return nil
}

// DeleteSession removes a session and, via cascade, its exercises and sets.
func (db *DB) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// GetSession retrieves a single session with its full exercise and set tree.
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s := &models.Session{}
	err := db.Pool.QueryRow(ctx,
		`SELECT id, title, session_type, start_time, end_time, duration_sec
		 FROM sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.Title, &s.Type, &s.StartTime, &s.EndTime, &s.DurationSec)
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	exRows, err := db.Pool.Query(ctx,
		`SELECT id, name, kind, order_index, is_superset, superset_group_id, rest_seconds
		 FROM session_exercises WHERE session_id = $1 ORDER BY order_index ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer exRows.Close()

	byID := make(map[uuid.UUID]*models.Exercise)
	for exRows.Next() {
		ex := &models.Exercise{}
		if err := exRows.Scan(&ex.ID, &ex.Name, &ex.Kind, &ex.OrderIndex,
			&ex.IsSuperset, &ex.SupersetGroupID, &ex.RestSeconds); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		s.Exercises = append(s.Exercises, ex)
		byID[ex.ID] = ex
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT st.id, st.exercise_id, st.order_index, st.weight_kg, st.reps,
		        st.duration_sec, st.speed_kmh, st.incline, st.is_completed
		 FROM session_sets st
		 JOIN session_exercises ex ON st.exercise_id = ex.id
		 WHERE ex.session_id = $1
		 ORDER BY ex.order_index ASC, st.order_index ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		st := &models.Set{}
		var exID uuid.UUID
		if err := setRows.Scan(&st.ID, &exID, &st.OrderIndex, &st.WeightKg, &st.Reps,
			&st.DurationSec, &st.SpeedKmh, &st.Incline, &st.IsCompleted); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		if ex, ok := byID[exID]; ok {
			ex.Sets = append(ex.Sets, st)
		}
	}
	return s, setRows.Err()
}

// QueryRecentSessions lists completed sessions newest-first.
func (db *DB) QueryRecentSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT s.id, s.title, s.session_type, s.start_time, s.end_time, s.duration_sec,
		        COUNT(DISTINCT ex.id), COUNT(st.id)
		 FROM sessions s
		 LEFT JOIN session_exercises ex ON ex.session_id = s.id
		 LEFT JOIN session_sets st ON st.exercise_id = ex.id
		 WHERE s.end_time IS NOT NULL
		 GROUP BY s.id
		 ORDER BY s.end_time DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []SessionSummary
	for rows.Next() {
		var r SessionSummary
		if err := rows.Scan(&r.ID, &r.Title, &r.Type, &r.StartTime, &r.EndTime,
			&r.DurationSec, &r.ExerciseCount, &r.SetCount); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
