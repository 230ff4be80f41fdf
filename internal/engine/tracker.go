package engine

import (
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
)

// DefaultRestDuration is the rest started after a set completion when the
// exercise carries no per-exercise override.
const DefaultRestDuration = 90 * time.Second

// Tracker is the navigation state machine: it owns the current position
// (active exercise, active set), applies completion/selection/reorder
// operations, and decides workout completion.
//
// A Tracker is not safe for concurrent use. Engine serializes all access on
// a single goroutine; tests drive a Tracker directly.
//
// Every operation returns whether it applied. Calls with no active session,
// no current exercise, or out-of-range indices are silent no-ops, never
// errors; callers gate UI actions on the returned state.
type Tracker struct {
	nowFn       func() time.Time
	defaultRest time.Duration

	state         State
	session       *models.Session
	exerciseIndex int
	setIndex      int
	virtualStart  time.Time
	restRemaining time.Duration
}

// NewTracker returns an idle tracker.
func NewTracker(defaultRest time.Duration) *Tracker {
	if defaultRest <= 0 {
		defaultRest = DefaultRestDuration
	}
	return &Tracker{
		nowFn:       time.Now,
		defaultRest: defaultRest,
		state:       StateIdle,
	}
}

// State returns the current lifecycle state.
func (t *Tracker) State() State { return t.state }

// IsWorkoutActive reports whether a session is loaded (any non-idle state).
func (t *Tracker) IsWorkoutActive() bool { return t.state != StateIdle }

// IsWorkoutComplete reports whether the position has moved past the last
// exercise.
func (t *Tracker) IsWorkoutComplete() bool { return t.state == StateComplete }

// Position returns the current (exerciseIndex, setIndex) pair.
func (t *Tracker) Position() (int, int) { return t.exerciseIndex, t.setIndex }

// Session returns the session currently held by the tracker, or nil.
func (t *Tracker) Session() *models.Session { return t.session }

// Start begins a fresh session at position (0,0) with elapsed time zero.
func (t *Tracker) Start(s *models.Session) bool {
	if t.state != StateIdle || s == nil {
		return false
	}
	s.Normalize()
	now := t.nowFn()
	if s.StartTime.IsZero() {
		s.StartTime = now
	}
	t.session = s
	t.exerciseIndex = 0
	t.setIndex = 0
	t.virtualStart = now
	t.restRemaining = 0
	if len(s.Exercises) == 0 {
		t.state = StateComplete
	} else {
		t.state = StateActive
	}
	return true
}

// Resume continues a held or persisted session. Elapsed time picks up from
// the session's accumulated duration via a virtual start time, and the
// position is recomputed as the first incomplete set scanning exercises in
// order. From Paused the held session is reused when s is nil.
func (t *Tracker) Resume(s *models.Session) bool {
	switch t.state {
	case StateIdle:
		if s == nil {
			return false
		}
		t.session = s
	case StatePaused:
		if s != nil {
			t.session = s
		}
	default:
		return false
	}
	t.session.Normalize()
	elapsed := time.Duration(t.session.DurationSec) * time.Second
	t.virtualStart = t.nowFn().Add(-elapsed)
	t.restRemaining = 0
	t.exerciseIndex, t.setIndex = firstIncompletePosition(t.session)
	if t.exerciseIndex >= len(t.session.Exercises) {
		t.state = StateComplete
	} else {
		t.state = StateActive
	}
	return true
}

// Pause holds the session: elapsed time is persisted into the session's
// accumulated duration, both timers stop, and the working position is
// dropped (Resume recomputes it from completion flags).
func (t *Tracker) Pause() bool {
	if t.state != StateActive && t.state != StateResting {
		return false
	}
	t.session.DurationSec = int(t.Elapsed().Seconds())
	t.state = StatePaused
	t.restRemaining = 0
	t.exerciseIndex = 0
	t.setIndex = 0
	return true
}

// Elapsed returns the session's running time. While running it is computed
// from the virtual start so drift from missed ticks self-corrects; while
// paused it is the stored accumulated duration.
func (t *Tracker) Elapsed() time.Duration {
	switch t.state {
	case StateActive, StateResting, StateComplete:
		return t.nowFn().Sub(t.virtualStart)
	case StatePaused:
		return time.Duration(t.session.DurationSec) * time.Second
	default:
		return 0
	}
}

// CurrentExercise returns the exercise at the current position while one is
// addressable.
func (t *Tracker) CurrentExercise() (*models.Exercise, bool) {
	if t.state != StateActive && t.state != StateResting {
		return nil, false
	}
	if t.exerciseIndex < 0 || t.exerciseIndex >= len(t.session.Exercises) {
		return nil, false
	}
	return t.session.Exercises[t.exerciseIndex], true
}

// CompleteCurrentSet records the values on the current set, marks it
// completed, and advances the position. Accepted while resting too: the
// running rest is discarded and a new one starts for the newly completed set.
// Unless the workout is complete the tracker moves to Resting.
func (t *Tracker) CompleteCurrentSet(v models.SetValues) bool {
	if t.state != StateActive && t.state != StateResting {
		return false
	}
	if t.exerciseIndex < 0 || t.exerciseIndex >= len(t.session.Exercises) {
		return false
	}
	ex := t.session.Exercises[t.exerciseIndex]
	if t.setIndex < 0 || t.setIndex >= len(ex.Sets) {
		return false
	}

	ex.Sets[t.setIndex].Apply(v)
	t.restRemaining = 0
	t.state = StateActive
	t.advance(ex)
	if t.state == StateComplete {
		return true
	}

	rest := t.defaultRest
	if ex.RestSeconds > 0 {
		rest = time.Duration(ex.RestSeconds) * time.Second
	}
	t.restRemaining = rest
	t.state = StateResting
	return true
}

// advance applies the position-advance rules for the just-completed exercise.
//
// Outside a superset the position walks the exercise's sets then moves to the
// next exercise. Within a superset group the position round-robins across the
// members at the same set index, bumping the set index each full rotation;
// when the group's sets are exhausted the position lands immediately after
// the group's last member. The rotation assumes all members share one set
// count.
func (t *Tracker) advance(cur *models.Exercise) {
	s := t.session
	if cur.SupersetGroupID == nil {
		if t.setIndex+1 < len(cur.Sets) {
			t.setIndex++
		} else {
			t.exerciseIndex++
			t.setIndex = 0
		}
	} else {
		group := s.SupersetGroup(*cur.SupersetGroupID)
		pos := 0
		for i, g := range group {
			if g.ID == cur.ID {
				pos = i
				break
			}
		}
		if pos < len(group)-1 {
			t.exerciseIndex = group[pos+1].OrderIndex
		} else {
			t.setIndex++
			if t.setIndex >= len(group[0].Sets) {
				t.exerciseIndex = group[len(group)-1].OrderIndex + 1
				t.setIndex = 0
			} else {
				t.exerciseIndex = group[0].OrderIndex
			}
		}
	}
	if t.exerciseIndex >= len(s.Exercises) {
		t.state = StateComplete
	}
}

// TickRest decrements the rest countdown by one second and reports whether
// it expired on this tick. Expiry exits to Active, identical to SkipRest.
func (t *Tracker) TickRest() bool {
	if t.state != StateResting {
		return false
	}
	t.restRemaining -= time.Second
	if t.restRemaining <= 0 {
		t.restRemaining = 0
		t.state = StateActive
		return true
	}
	return false
}

// SkipRest stops the rest countdown immediately, converging on the same
// state as natural expiry.
func (t *Tracker) SkipRest() bool {
	if t.state != StateResting {
		return false
	}
	t.restRemaining = 0
	t.state = StateActive
	return true
}

// AddRestTime adjusts the remaining rest without resetting the tick cadence.
// Negative adjustments clamp at zero; the exit still happens on the next tick.
func (t *Tracker) AddRestTime(d time.Duration) bool {
	if t.state != StateResting {
		return false
	}
	t.restRemaining += d
	if t.restRemaining < 0 {
		t.restRemaining = 0
	}
	return true
}

// SelectExercise jumps the position to the named exercise at its first
// incomplete set. Timers are unaffected.
func (t *Tracker) SelectExercise(id uuid.UUID) bool {
	if t.state != StateActive && t.state != StateResting {
		return false
	}
	for i, ex := range t.session.Exercises {
		if ex.ID == id {
			t.exerciseIndex = i
			t.setIndex = ex.NextIncompleteSetIndex()
			return true
		}
	}
	return false
}

// MoveExercise reorders the session's exercise list and keeps the user's
// focus on the same exercise: if the current exercise moved it follows, and
// anything strictly between the two slots shifts one toward the vacated one.
func (t *Tracker) MoveExercise(from, to int) bool {
	if t.state != StateActive && t.state != StateResting {
		return false
	}
	if !t.session.MoveExercise(from, to) {
		return false
	}
	switch {
	case t.exerciseIndex == from:
		t.exerciseIndex = to
	case from < t.exerciseIndex && t.exerciseIndex <= to:
		t.exerciseIndex--
	case to <= t.exerciseIndex && t.exerciseIndex < from:
		t.exerciseIndex++
	}
	return true
}

// End finalizes the session: the elapsed time is snapshotted into the
// session's duration, the end time is stamped, and the tracker returns to
// idle. The session is handed back to the caller for persistence.
func (t *Tracker) End() *models.Session {
	if t.state == StateIdle {
		return nil
	}
	s := t.session
	s.DurationSec = int(t.Elapsed().Seconds())
	now := t.nowFn()
	s.EndTime = &now
	t.reset()
	return s
}

// Discard abandons the session without stamping an end time and returns it
// so the caller can delete it from storage.
func (t *Tracker) Discard() *models.Session {
	if t.state == StateIdle {
		return nil
	}
	s := t.session
	t.reset()
	return s
}

func (t *Tracker) reset() {
	t.state = StateIdle
	t.session = nil
	t.exerciseIndex = 0
	t.setIndex = 0
	t.restRemaining = 0
}

// Snapshot builds the read-only view pushed to notifiers.
func (t *Tracker) Snapshot() Snapshot {
	snap := Snapshot{State: t.state}
	if t.session == nil {
		return snap
	}
	snap.Title = t.session.Title
	snap.ElapsedSeconds = int(t.Elapsed().Seconds())
	if ex, ok := t.CurrentExercise(); ok {
		snap.CurrentExerciseName = ex.Name
		snap.CurrentSetNumber = t.setIndex + 1
		snap.TotalSetsInCurrentExercise = len(ex.Sets)
	}
	if t.state == StateResting {
		end := t.nowFn().Add(t.restRemaining)
		snap.RestEndsAt = &end
		snap.RestRemainingSeconds = int(t.restRemaining.Seconds())
	}
	return snap
}

// firstIncompletePosition scans exercises in order for the first set not yet
// completed. All done means the position lands past the end.
func firstIncompletePosition(s *models.Session) (int, int) {
	for i, ex := range s.Exercises {
		if !ex.IsFullyCompleted() {
			return i, ex.NextIncompleteSetIndex()
		}
	}
	return len(s.Exercises), 0
}
