// Package localstore is a single-user embedded session store backed by
// SQLite. It mirrors the Postgres store's contract so dev and offline setups
// run without a database server.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	session_type TEXT NOT NULL DEFAULT '',
	start_time   TEXT NOT NULL,
	end_time     TEXT,
	duration_sec INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS session_exercises (
	id                TEXT PRIMARY KEY,
	session_id        TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	name              TEXT NOT NULL,
	kind              TEXT NOT NULL DEFAULT 'weight',
	order_index       INTEGER NOT NULL,
	is_superset       INTEGER NOT NULL DEFAULT 0,
	superset_group_id TEXT,
	rest_seconds      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS session_sets (
	id           TEXT PRIMARY KEY,
	exercise_id  TEXT NOT NULL REFERENCES session_exercises(id) ON DELETE CASCADE,
	order_index  INTEGER NOT NULL,
	weight_kg    REAL,
	reps         INTEGER,
	duration_sec REAL,
	speed_kmh    REAL,
	incline      REAL,
	is_completed INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_local_exercises_session ON session_exercises(session_id, order_index);
CREATE INDEX IF NOT EXISTS idx_local_sets_exercise ON session_sets(exercise_id, order_index);
CREATE INDEX IF NOT EXISTS idx_local_exercises_name ON session_exercises(name);
`

// DB is the SQLite-backed session store.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite store at the given path, creating the
// parent directory and schema as needed.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the store.
func (l *DB) Close() error {
	return l.db.Close()
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339, s) }

// InsertSession inserts a session with its full exercise and set tree.
func (l *DB) InsertSession(ctx context.Context, s *models.Session) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, title, session_type, start_time, end_time, duration_sec)
		 VALUES (?,?,?,?,?,?)`,
		s.ID.String(), s.Title, s.Type, formatTime(s.StartTime), nullTime(s.EndTime), s.DurationSec); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	if err := insertExerciseTree(ctx, tx, s); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveSession replaces the stored session tree with the in-memory one.
func (l *DB) SaveSession(ctx context.Context, s *models.Session) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, title, session_type, start_time, end_time, duration_sec)
		 VALUES (?,?,?,?,?,?)
		 ON CONFLICT (id) DO UPDATE SET
		   title = excluded.title,
		   session_type = excluded.session_type,
		   start_time = excluded.start_time,
		   end_time = excluded.end_time,
		   duration_sec = excluded.duration_sec`,
		s.ID.String(), s.Title, s.Type, formatTime(s.StartTime), nullTime(s.EndTime), s.DurationSec); err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM session_exercises WHERE session_id = ?`, s.ID.String()); err != nil {
		return fmt.Errorf("clearing exercises: %w", err)
	}
	if err := insertExerciseTree(ctx, tx, s); err != nil {
		return err
	}
	return tx.Commit()
}

func insertExerciseTree(ctx context.Context, tx *sql.Tx, s *models.Session) error {
	for _, ex := range s.Exercises {
		var groupID any
		if ex.SupersetGroupID != nil {
			groupID = ex.SupersetGroupID.String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_exercises (id, session_id, name, kind, order_index, is_superset, superset_group_id, rest_seconds)
			 VALUES (?,?,?,?,?,?,?,?)`,
			ex.ID.String(), s.ID.String(), ex.Name, string(ex.Kind), ex.OrderIndex,
			ex.IsSuperset, groupID, ex.RestSeconds); err != nil {
			return fmt.Errorf("inserting exercise %s: %w", ex.Name, err)
		}
		for _, st := range ex.Sets {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO session_sets (id, exercise_id, order_index, weight_kg, reps, duration_sec, speed_kmh, incline, is_completed)
				 VALUES (?,?,?,?,?,?,?,?,?)`,
				st.ID.String(), ex.ID.String(), st.OrderIndex, st.WeightKg, st.Reps,
				st.DurationSec, st.SpeedKmh, st.Incline, st.IsCompleted); err != nil {
				return fmt.Errorf("inserting set: %w", err)
			}
		}
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// DeleteSession removes a session and, via cascade, its exercises and sets.
func (l *DB) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// GetSession retrieves a single session with its full exercise and set tree.
func (l *DB) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s := &models.Session{}
	var idStr, startStr string
	var endStr sql.NullString
	err := l.db.QueryRowContext(ctx,
		`SELECT id, title, session_type, start_time, end_time, duration_sec
		 FROM sessions WHERE id = ?`, id.String()).
		Scan(&idStr, &s.Title, &s.Type, &startStr, &endStr, &s.DurationSec)
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	if s.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("parsing session id: %w", err)
	}
	if s.StartTime, err = parseTime(startStr); err != nil {
		return nil, fmt.Errorf("parsing start time: %w", err)
	}
	if endStr.Valid {
		end, err := parseTime(endStr.String)
		if err != nil {
			return nil, fmt.Errorf("parsing end time: %w", err)
		}
		s.EndTime = &end
	}

	exRows, err := l.db.QueryContext(ctx,
		`SELECT id, name, kind, order_index, is_superset, superset_group_id, rest_seconds
		 FROM session_exercises WHERE session_id = ? ORDER BY order_index ASC`, id.String())
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer exRows.Close()

	byID := make(map[string]*models.Exercise)
	for exRows.Next() {
		ex := &models.Exercise{}
		var exIDStr, kind string
		var groupStr sql.NullString
		if err := exRows.Scan(&exIDStr, &ex.Name, &kind, &ex.OrderIndex,
			&ex.IsSuperset, &groupStr, &ex.RestSeconds); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		ex.Kind = models.ExerciseKind(kind)
		if ex.ID, err = uuid.Parse(exIDStr); err != nil {
			return nil, fmt.Errorf("parsing exercise id: %w", err)
		}
		if groupStr.Valid {
			gid, err := uuid.Parse(groupStr.String)
			if err != nil {
				return nil, fmt.Errorf("parsing group id: %w", err)
			}
			ex.SupersetGroupID = &gid
		}
		s.Exercises = append(s.Exercises, ex)
		byID[exIDStr] = ex
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	setRows, err := l.db.QueryContext(ctx,
		`SELECT st.id, st.exercise_id, st.order_index, st.weight_kg, st.reps,
		        st.duration_sec, st.speed_kmh, st.incline, st.is_completed
		 FROM session_sets st
		 JOIN session_exercises ex ON st.exercise_id = ex.id
		 WHERE ex.session_id = ?
		 ORDER BY ex.order_index ASC, st.order_index ASC`, id.String())
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		st := &models.Set{}
		var setIDStr, exIDStr string
		if err := setRows.Scan(&setIDStr, &exIDStr, &st.OrderIndex, &st.WeightKg, &st.Reps,
			&st.DurationSec, &st.SpeedKmh, &st.Incline, &st.IsCompleted); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		if st.ID, err = uuid.Parse(setIDStr); err != nil {
			return nil, fmt.Errorf("parsing set id: %w", err)
		}
		if ex, ok := byID[exIDStr]; ok {
			ex.Sets = append(ex.Sets, st)
		}
	}
	return s, setRows.Err()
}

// QueryRecentSessions lists completed sessions newest-first.
func (l *DB) QueryRecentSessions(ctx context.Context, limit int) ([]storage.SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT s.id, s.title, s.session_type, s.start_time, s.end_time, s.duration_sec,
		        COUNT(DISTINCT ex.id), COUNT(st.id)
		 FROM sessions s
		 LEFT JOIN session_exercises ex ON ex.session_id = s.id
		 LEFT JOIN session_sets st ON st.exercise_id = ex.id
		 WHERE s.end_time IS NOT NULL
		 GROUP BY s.id
		 ORDER BY s.end_time DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []storage.SessionSummary
	for rows.Next() {
		var r storage.SessionSummary
		var idStr, startStr string
		var endStr sql.NullString
		if err := rows.Scan(&idStr, &r.Title, &r.Type, &startStr, &endStr,
			&r.DurationSec, &r.ExerciseCount, &r.SetCount); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if r.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parsing session id: %w", err)
		}
		if r.StartTime, err = parseTime(startStr); err != nil {
			return nil, fmt.Errorf("parsing start time: %w", err)
		}
		if endStr.Valid {
			end, err := parseTime(endStr.String)
			if err != nil {
				return nil, fmt.Errorf("parsing end time: %w", err)
			}
			r.EndTime = &end
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// LastPerformance returns the most recent prior weight/reps for the named
// exercise at the given set position, skipping the excluded session. Misses
// return nil, nil.
func (l *DB) LastPerformance(ctx context.Context, exerciseName string, setIndex int, excludeSessionID uuid.UUID) (*models.Performance, error) {
	var exerciseID string
	err := l.db.QueryRowContext(ctx,
		`SELECT ex.id
		 FROM session_exercises ex
		 JOIN sessions s ON ex.session_id = s.id
		 WHERE ex.name = ? AND s.id <> ? AND s.end_time IS NOT NULL
		 ORDER BY s.end_time DESC, ex.order_index ASC
		 LIMIT 1`,
		exerciseName, excludeSessionID.String()).Scan(&exerciseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}

	var p models.Performance
	err = l.db.QueryRowContext(ctx,
		`SELECT weight_kg, reps FROM session_sets
		 WHERE exercise_id = ? AND order_index = ?`,
		exerciseID, setIndex).Scan(&p.WeightKg, &p.Reps)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying set history: %w", err)
	}
	return &p, nil
}
