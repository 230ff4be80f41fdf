package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "repflow.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

// completedSession builds a finished session containing one exercise with the
// given recorded weights, ended at the given time.
func completedSession(name string, endedAt time.Time, weights ...float64) *models.Session {
	s := &models.Session{
		ID:        uuid.New(),
		Title:     "Logged " + name,
		StartTime: endedAt.Add(-time.Hour),
		EndTime:   &endedAt,
	}
	ex := &models.Exercise{ID: uuid.New(), Name: name, Kind: models.KindWeight}
	for i, w := range weights {
		ex.Sets = append(ex.Sets, &models.Set{
			ID:          uuid.New(),
			OrderIndex:  i,
			WeightKg:    ptr(w),
			Reps:        ptr(8),
			IsCompleted: true,
		})
	}
	s.Exercises = append(s.Exercises, ex)
	return s
}

// TestSessionRoundTrip verifies a full session tree survives insert and read
// back, including superset metadata and optional set values.
func TestSessionRoundTrip(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	gid := uuid.New()
	s := &models.Session{
		ID:        uuid.New(),
		Title:     "Upper A",
		Type:      "strength",
		StartTime: time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC),
	}
	squat := &models.Exercise{
		ID: uuid.New(), Name: "Squat", Kind: models.KindWeight,
		OrderIndex: 0, IsSuperset: true, SupersetGroupID: &gid, RestSeconds: 120,
	}
	squat.Sets = []*models.Set{
		{ID: uuid.New(), OrderIndex: 0, WeightKg: ptr(100.0), Reps: ptr(5), IsCompleted: true},
		{ID: uuid.New(), OrderIndex: 1},
	}
	s.Exercises = []*models.Exercise{squat}

	if err := db.InsertSession(ctx, s); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	got, err := db.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Title != "Upper A" || got.Type != "strength" {
		t.Errorf("session = %q/%q", got.Title, got.Type)
	}
	if !got.StartTime.Equal(s.StartTime) {
		t.Errorf("start time = %v, want %v", got.StartTime, s.StartTime)
	}
	if got.EndTime != nil {
		t.Error("end time set on unfinished session")
	}
	if len(got.Exercises) != 1 {
		t.Fatalf("exercise count = %d", len(got.Exercises))
	}
	ex := got.Exercises[0]
	if !ex.IsSuperset || ex.SupersetGroupID == nil || *ex.SupersetGroupID != gid {
		t.Error("superset metadata lost")
	}
	if ex.RestSeconds != 120 {
		t.Errorf("rest seconds = %d, want 120", ex.RestSeconds)
	}
	if len(ex.Sets) != 2 {
		t.Fatalf("set count = %d", len(ex.Sets))
	}
	if ex.Sets[0].WeightKg == nil || *ex.Sets[0].WeightKg != 100.0 {
		t.Errorf("set 0 weight = %v", ex.Sets[0].WeightKg)
	}
	if !ex.Sets[0].IsCompleted || ex.Sets[1].IsCompleted {
		t.Error("completion flags wrong")
	}
	if ex.Sets[1].WeightKg != nil {
		t.Error("unrecorded set has a weight")
	}
}

// TestSaveSessionReplacesTree verifies save rewrites exercises and sets.
func TestSaveSessionReplacesTree(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	s := completedSession("Deadlift", time.Now().UTC().Truncate(time.Second), 140, 140)
	s.EndTime = nil
	if err := db.InsertSession(ctx, s); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	s.Exercises[0].Sets[0].WeightKg = ptr(145.0)
	s.Exercises[0].Sets = s.Exercises[0].Sets[:1]
	s.DurationSec = 1800
	if err := db.SaveSession(ctx, s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := db.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.DurationSec != 1800 {
		t.Errorf("duration = %d, want 1800", got.DurationSec)
	}
	if len(got.Exercises[0].Sets) != 1 {
		t.Fatalf("set count after save = %d, want 1", len(got.Exercises[0].Sets))
	}
	if *got.Exercises[0].Sets[0].WeightKg != 145.0 {
		t.Errorf("weight = %v, want 145", *got.Exercises[0].Sets[0].WeightKg)
	}
}

// TestDeleteSessionCascades verifies delete removes the whole tree.
func TestDeleteSessionCascades(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	s := completedSession("Row", time.Now().UTC().Truncate(time.Second), 60)
	if err := db.InsertSession(ctx, s); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	if err := db.DeleteSession(ctx, s.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := db.GetSession(ctx, s.ID); err == nil {
		t.Error("GetSession succeeded after delete")
	}

	var count int
	if err := db.db.QueryRow(`SELECT COUNT(*) FROM session_sets`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("orphaned sets = %d, want 0", count)
	}
}

// TestQueryRecentSessionsOrdering verifies only completed sessions list,
// newest first.
func TestQueryRecentSessionsOrdering(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	older := completedSession("Bench Press", base, 80)
	newer := completedSession("Bench Press", base.AddDate(0, 0, 3), 82.5)
	unfinished := completedSession("Bench Press", base.AddDate(0, 0, 5), 85)
	unfinished.EndTime = nil

	for _, s := range []*models.Session{older, newer, unfinished} {
		if err := db.InsertSession(ctx, s); err != nil {
			t.Fatalf("InsertSession: %v", err)
		}
	}

	got, err := db.QueryRecentSessions(ctx, 10)
	if err != nil {
		t.Fatalf("QueryRecentSessions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("session count = %d, want 2 (unfinished excluded)", len(got))
	}
	if got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Error("sessions not ordered newest-first")
	}
	if got[0].ExerciseCount != 1 || got[0].SetCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", got[0].ExerciseCount, got[0].SetCount)
	}
}

// TestLastPerformance verifies newest-first matching, current-session
// exclusion, and the no-fallthrough rule for out-of-range set indices.
func TestLastPerformance(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	older := completedSession("Bench Press", base, 80, 80, 77.5)
	newer := completedSession("Bench Press", base.AddDate(0, 0, 7), 82.5, 82.5)
	for _, s := range []*models.Session{older, newer} {
		if err := db.InsertSession(ctx, s); err != nil {
			t.Fatalf("InsertSession: %v", err)
		}
	}

	p, err := db.LastPerformance(ctx, "Bench Press", 0, uuid.New())
	if err != nil {
		t.Fatalf("LastPerformance: %v", err)
	}
	if p == nil || p.WeightKg == nil || *p.WeightKg != 82.5 {
		t.Errorf("performance = %+v, want newest 82.5", p)
	}
	if p.Reps == nil || *p.Reps != 8 {
		t.Errorf("reps = %v, want 8", p.Reps)
	}

	// Excluding the newest session falls back to the older one.
	p, err = db.LastPerformance(ctx, "Bench Press", 0, newer.ID)
	if err != nil {
		t.Fatalf("LastPerformance: %v", err)
	}
	if p == nil || *p.WeightKg != 80.0 {
		t.Errorf("performance = %+v, want excluded fallback 80", p)
	}

	// Set index past the newest matching exercise is a miss, not a
	// fallthrough to the older session's third set.
	p, err = db.LastPerformance(ctx, "Bench Press", 2, uuid.New())
	if err != nil {
		t.Fatalf("LastPerformance: %v", err)
	}
	if p != nil {
		t.Errorf("performance = %+v, want nil for out-of-range index", p)
	}

	// Unknown exercise is a miss.
	p, err = db.LastPerformance(ctx, "Zercher Squat", 0, uuid.New())
	if err != nil {
		t.Fatalf("LastPerformance: %v", err)
	}
	if p != nil {
		t.Errorf("performance = %+v, want nil for unknown exercise", p)
	}
}
