package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
)

// State is the navigation engine's lifecycle state.
type State string

const (
	// StateIdle means no session is loaded.
	StateIdle State = "idle"
	// StateActive means a session is running and the elapsed timer is ticking.
	StateActive State = "active"
	// StateResting means the rest countdown is ticking alongside the elapsed timer.
	StateResting State = "resting"
	// StatePaused means the session is held with both timers stopped.
	StatePaused State = "paused"
	// StateComplete means every set is done; position points past the last exercise.
	StateComplete State = "complete"
)

// Running reports whether the elapsed timer should be ticking in this state.
func (s State) Running() bool {
	return s == StateActive || s == StateResting || s == StateComplete
}

// Snapshot is an immutable view of engine state pushed to notifiers after
// every transition. Consumers may only read it; they never mutate engine
// state.
type Snapshot struct {
	State                      State      `json:"state"`
	Title                      string     `json:"title,omitempty"`
	CurrentExerciseName        string     `json:"current_exercise_name,omitempty"`
	CurrentSetNumber           int        `json:"current_set_number,omitempty"`
	TotalSetsInCurrentExercise int        `json:"total_sets_in_current_exercise,omitempty"`
	ElapsedSeconds             int        `json:"elapsed_seconds"`
	RestRemainingSeconds       int        `json:"rest_remaining_seconds,omitempty"`
	RestEndsAt                 *time.Time `json:"rest_ends_at,omitempty"`
}

// Notifier receives a state snapshot after every engine transition.
type Notifier interface {
	StateChanged(Snapshot)
}

// FeedbackEvent is a fire-and-forget signal for haptic/alert feedback.
type FeedbackEvent string

const (
	EventSetCompleted      FeedbackEvent = "set_completed"
	EventRestExpired       FeedbackEvent = "rest_expired"
	EventExerciseReordered FeedbackEvent = "exercise_reordered"
)

// FeedbackSink consumes feedback events. Implementations must not block.
type FeedbackSink interface {
	Emit(FeedbackEvent)
}

// SessionStore is the persistence surface the engine needs. The engine never
// surfaces store errors to callers; failures are logged and the live workout
// continues.
type SessionStore interface {
	InsertSession(ctx context.Context, s *models.Session) error
	SaveSession(ctx context.Context, s *models.Session) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// NopNotifier discards snapshots.
type NopNotifier struct{}

func (NopNotifier) StateChanged(Snapshot) {}

// NopFeedback discards feedback events.
type NopFeedback struct{}

func (NopFeedback) Emit(FeedbackEvent) {}

// MultiNotifier fans a snapshot out to several notifiers.
func MultiNotifier(ns ...Notifier) Notifier {
	return multiNotifier(ns)
}

type multiNotifier []Notifier

func (m multiNotifier) StateChanged(s Snapshot) {
	for _, n := range m {
		n.StateChanged(s)
	}
}

// LogFeedback logs feedback events; a stand-in for platform haptic delivery.
type LogFeedback struct {
	Log *slog.Logger
}

func (f LogFeedback) Emit(ev FeedbackEvent) {
	f.Log.Debug("feedback event", "event", string(ev))
}
