package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ExerciseKind classifies how an exercise is performed and which set values
// are meaningful for it.
type ExerciseKind string

const (
	KindWeight       ExerciseKind = "weight"
	KindCardio       ExerciseKind = "cardio"
	KindCalisthenics ExerciseKind = "calisthenics"
	KindFlexibility  ExerciseKind = "flexibility"
)

// Session is one workout: an ordered list of exercises with their sets.
// The session object is owned by the caller; the engine holds a reference
// while a run is active and releases it on end/discard.
type Session struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Type        string      `json:"type,omitempty"`
	StartTime   time.Time   `json:"start_time"`
	EndTime     *time.Time  `json:"end_time,omitempty"`
	DurationSec int         `json:"duration_sec"`
	Exercises   []*Exercise `json:"exercises"`
}

// Exercise is one movement within a session. OrderIndex positions it in the
// session; superset members share a SupersetGroupID.
type Exercise struct {
	ID              uuid.UUID    `json:"id"`
	Name            string       `json:"name"`
	Kind            ExerciseKind `json:"kind"`
	OrderIndex      int          `json:"order_index"`
	IsSuperset      bool         `json:"is_superset"`
	SupersetGroupID *uuid.UUID   `json:"superset_group_id,omitempty"`
	RestSeconds     int          `json:"rest_seconds,omitempty"`
	Sets            []*Set       `json:"sets"`
}

// Set is one set of an exercise. Value fields are nil until recorded.
type Set struct {
	ID          uuid.UUID `json:"id"`
	OrderIndex  int       `json:"order_index"`
	WeightKg    *float64  `json:"weight_kg,omitempty"`
	Reps        *int      `json:"reps,omitempty"`
	DurationSec *float64  `json:"duration_sec,omitempty"`
	SpeedKmh    *float64  `json:"speed_kmh,omitempty"`
	Incline     *float64  `json:"incline,omitempty"`
	IsCompleted bool      `json:"is_completed"`
}

// SetValues carries the recorded values for a set completion. Nil fields
// leave the existing set value untouched.
type SetValues struct {
	WeightKg    *float64 `json:"weight_kg,omitempty"`
	Reps        *int     `json:"reps,omitempty"`
	DurationSec *float64 `json:"duration_sec,omitempty"`
	SpeedKmh    *float64 `json:"speed_kmh,omitempty"`
	Incline     *float64 `json:"incline,omitempty"`
}

// Performance is a prior recorded weight/reps pair returned by history lookup.
type Performance struct {
	WeightKg *float64 `json:"weight_kg,omitempty"`
	Reps     *int     `json:"reps,omitempty"`
}

// Apply writes the non-nil values onto the set and marks it completed.
// Re-completion overwrites previous values.
func (s *Set) Apply(v SetValues) {
	if v.WeightKg != nil {
		s.WeightKg = v.WeightKg
	}
	if v.Reps != nil {
		s.Reps = v.Reps
	}
	if v.DurationSec != nil {
		s.DurationSec = v.DurationSec
	}
	if v.SpeedKmh != nil {
		s.SpeedKmh = v.SpeedKmh
	}
	if v.Incline != nil {
		s.Incline = v.Incline
	}
	s.IsCompleted = true
}

// RenumberExercises sorts the exercise list by OrderIndex and reassigns
// contiguous indices 0..n-1. Called after every reorder/add/remove.
func (s *Session) RenumberExercises() {
	sort.SliceStable(s.Exercises, func(i, j int) bool {
		return s.Exercises[i].OrderIndex < s.Exercises[j].OrderIndex
	})
	for i, ex := range s.Exercises {
		ex.OrderIndex = i
	}
}

// RenumberSets sorts the set list by OrderIndex and reassigns contiguous
// indices 0..n-1.
func (e *Exercise) RenumberSets() {
	sort.SliceStable(e.Sets, func(i, j int) bool {
		return e.Sets[i].OrderIndex < e.Sets[j].OrderIndex
	})
	for i, st := range e.Sets {
		st.OrderIndex = i
	}
}

// Normalize renumbers the session's exercises and every exercise's sets so
// slice order matches OrderIndex order everywhere.
func (s *Session) Normalize() {
	s.RenumberExercises()
	for _, ex := range s.Exercises {
		ex.RenumberSets()
	}
}

// MoveExercise relocates the exercise at position from to position to and
// renumbers. Returns false if either index is out of range.
func (s *Session) MoveExercise(from, to int) bool {
	n := len(s.Exercises)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	if from == to {
		return true
	}
	s.RenumberExercises()
	ex := s.Exercises[from]
	s.Exercises = append(s.Exercises[:from], s.Exercises[from+1:]...)
	rest := append([]*Exercise{ex}, s.Exercises[to:]...)
	s.Exercises = append(s.Exercises[:to], rest...)
	for i, e := range s.Exercises {
		e.OrderIndex = i
	}
	return true
}

// AddExercise appends an exercise at the end of the session and renumbers.
func (s *Session) AddExercise(ex *Exercise) {
	ex.OrderIndex = len(s.Exercises)
	s.Exercises = append(s.Exercises, ex)
	s.RenumberExercises()
}

// RemoveExercise deletes the exercise with the given ID and renumbers.
// Returns false if no exercise matches.
func (s *Session) RemoveExercise(id uuid.UUID) bool {
	for i, ex := range s.Exercises {
		if ex.ID == id {
			s.Exercises = append(s.Exercises[:i], s.Exercises[i+1:]...)
			s.RenumberExercises()
			return true
		}
	}
	return false
}

// SupersetGroup returns the members of the group in session order. The engine
// assumes members of one group carry the same set count; that is caller
// responsibility and is not validated here.
func (s *Session) SupersetGroup(groupID uuid.UUID) []*Exercise {
	var group []*Exercise
	for _, ex := range s.Exercises {
		if ex.SupersetGroupID != nil && *ex.SupersetGroupID == groupID {
			group = append(group, ex)
		}
	}
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].OrderIndex < group[j].OrderIndex
	})
	return group
}

// NextIncompleteSetIndex returns the index of the first set not yet completed.
// A fully completed exercise yields the last valid index rather than
// past-the-end, so callers always have an addressable set to display.
func (e *Exercise) NextIncompleteSetIndex() int {
	for i, st := range e.Sets {
		if !st.IsCompleted {
			return i
		}
	}
	if len(e.Sets) == 0 {
		return 0
	}
	return len(e.Sets) - 1
}

// IsFullyCompleted reports whether every set of the exercise is completed.
// An exercise with no sets counts as completed.
func (e *Exercise) IsFullyCompleted() bool {
	for _, st := range e.Sets {
		if !st.IsCompleted {
			return false
		}
	}
	return true
}
