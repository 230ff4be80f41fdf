package models

import (
	"testing"

	"github.com/google/uuid"
)

func sessionWithExercises(names ...string) *Session {
	s := &Session{ID: uuid.New(), Title: "Test"}
	for i, name := range names {
		ex := &Exercise{ID: uuid.New(), Name: name, Kind: KindWeight, OrderIndex: i}
		for j := 0; j < 3; j++ {
			ex.Sets = append(ex.Sets, &Set{ID: uuid.New(), OrderIndex: j})
		}
		s.Exercises = append(s.Exercises, ex)
	}
	return s
}

// TestMoveExerciseRenumbers verifies that a move leaves order indices as a
// contiguous 0..n-1 permutation and each exercise's set list untouched.
func TestMoveExerciseRenumbers(t *testing.T) {
	s := sessionWithExercises("Squat", "Bench", "Row", "Curl")

	if !s.MoveExercise(0, 2) {
		t.Fatal("MoveExercise(0,2) = false, want true")
	}

	wantOrder := []string{"Bench", "Row", "Squat", "Curl"}
	for i, ex := range s.Exercises {
		if ex.Name != wantOrder[i] {
			t.Errorf("position %d = %q, want %q", i, ex.Name, wantOrder[i])
		}
		if ex.OrderIndex != i {
			t.Errorf("%s order index = %d, want %d", ex.Name, ex.OrderIndex, i)
		}
		if len(ex.Sets) != 3 {
			t.Errorf("%s set count = %d, want 3", ex.Name, len(ex.Sets))
		}
	}
}

// TestMoveExerciseBackward verifies moving toward the front of the list.
func TestMoveExerciseBackward(t *testing.T) {
	s := sessionWithExercises("Squat", "Bench", "Row")

	if !s.MoveExercise(2, 0) {
		t.Fatal("MoveExercise(2,0) = false, want true")
	}

	wantOrder := []string{"Row", "Squat", "Bench"}
	for i, ex := range s.Exercises {
		if ex.Name != wantOrder[i] {
			t.Errorf("position %d = %q, want %q", i, ex.Name, wantOrder[i])
		}
	}
}

// TestMoveExerciseOutOfRange verifies out-of-range moves are rejected and
// leave the list untouched.
func TestMoveExerciseOutOfRange(t *testing.T) {
	s := sessionWithExercises("Squat", "Bench")

	for _, c := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		if s.MoveExercise(c[0], c[1]) {
			t.Errorf("MoveExercise(%d,%d) = true, want false", c[0], c[1])
		}
	}
	if s.Exercises[0].Name != "Squat" || s.Exercises[1].Name != "Bench" {
		t.Error("rejected move mutated the exercise list")
	}
}

// TestRemoveExerciseRenumbers verifies removal closes the order-index gap.
func TestRemoveExerciseRenumbers(t *testing.T) {
	s := sessionWithExercises("Squat", "Bench", "Row")
	target := s.Exercises[1].ID

	if !s.RemoveExercise(target) {
		t.Fatal("RemoveExercise = false, want true")
	}
	if len(s.Exercises) != 2 {
		t.Fatalf("exercise count = %d, want 2", len(s.Exercises))
	}
	for i, ex := range s.Exercises {
		if ex.OrderIndex != i {
			t.Errorf("%s order index = %d, want %d", ex.Name, ex.OrderIndex, i)
		}
	}
	if s.RemoveExercise(uuid.New()) {
		t.Error("RemoveExercise(unknown) = true, want false")
	}
}

// TestNormalizeSortsByOrderIndex verifies Normalize fixes shuffled and gapped
// order indices on both exercises and sets.
func TestNormalizeSortsByOrderIndex(t *testing.T) {
	s := sessionWithExercises("Squat", "Bench")
	s.Exercises[0].OrderIndex = 7
	s.Exercises[1].OrderIndex = 2
	s.Exercises[0].Sets[0].OrderIndex = 5
	s.Exercises[0].Sets[2].OrderIndex = 1

	s.Normalize()

	if s.Exercises[0].Name != "Bench" {
		t.Errorf("first exercise = %q, want Bench", s.Exercises[0].Name)
	}
	for i, ex := range s.Exercises {
		if ex.OrderIndex != i {
			t.Errorf("exercise %d order index = %d", i, ex.OrderIndex)
		}
		for j, st := range ex.Sets {
			if st.OrderIndex != j {
				t.Errorf("exercise %d set %d order index = %d", i, j, st.OrderIndex)
			}
		}
	}
}

// TestSupersetGroupOrdering verifies group members come back in session order
// regardless of slice order, and non-members are excluded.
func TestSupersetGroupOrdering(t *testing.T) {
	s := sessionWithExercises("Squat", "Bench", "Row")
	gid := uuid.New()
	s.Exercises[2].IsSuperset = true
	s.Exercises[2].SupersetGroupID = &gid
	s.Exercises[0].IsSuperset = true
	s.Exercises[0].SupersetGroupID = &gid

	group := s.SupersetGroup(gid)
	if len(group) != 2 {
		t.Fatalf("group size = %d, want 2", len(group))
	}
	if group[0].Name != "Squat" || group[1].Name != "Row" {
		t.Errorf("group order = [%s %s], want [Squat Row]", group[0].Name, group[1].Name)
	}
}

// TestNextIncompleteSetIndex verifies the scan order and the clamp on a fully
// completed exercise.
func TestNextIncompleteSetIndex(t *testing.T) {
	ex := &Exercise{Name: "Squat"}
	for j := 0; j < 3; j++ {
		ex.Sets = append(ex.Sets, &Set{OrderIndex: j})
	}

	if got := ex.NextIncompleteSetIndex(); got != 0 {
		t.Errorf("fresh exercise next set = %d, want 0", got)
	}

	ex.Sets[0].IsCompleted = true
	if got := ex.NextIncompleteSetIndex(); got != 1 {
		t.Errorf("next set = %d, want 1", got)
	}

	ex.Sets[1].IsCompleted = true
	ex.Sets[2].IsCompleted = true
	if got := ex.NextIncompleteSetIndex(); got != 2 {
		t.Errorf("completed exercise next set = %d, want clamp to 2", got)
	}
	if !ex.IsFullyCompleted() {
		t.Error("IsFullyCompleted = false, want true")
	}
}

// TestApplyOverwritesOnRecompletion verifies set values overwrite on a second
// completion and nil fields leave prior values alone.
func TestApplyOverwritesOnRecompletion(t *testing.T) {
	st := &Set{}
	w1, r1 := 100.0, 5
	st.Apply(SetValues{WeightKg: &w1, Reps: &r1})

	if !st.IsCompleted {
		t.Fatal("set not marked completed")
	}
	if st.WeightKg == nil || *st.WeightKg != 100.0 {
		t.Errorf("weight = %v, want 100", st.WeightKg)
	}

	w2 := 102.5
	st.Apply(SetValues{WeightKg: &w2})
	if *st.WeightKg != 102.5 {
		t.Errorf("weight after re-completion = %v, want 102.5", *st.WeightKg)
	}
	if st.Reps == nil || *st.Reps != 5 {
		t.Errorf("reps = %v, want preserved 5", st.Reps)
	}
}
