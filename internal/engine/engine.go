package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
)

const storeTimeout = 5 * time.Second

// Engine drives a Tracker from a single goroutine. Caller operations are
// posted as closures onto one channel and timer ticks are delivered on the
// same select loop, so no two mutations ever interleave and the tracker needs
// no locking. Public methods block until the loop has applied the operation.
//
// After every applied transition and every tick the engine pushes a Snapshot
// to the notifier. Store failures are logged, never surfaced: persistence
// must not wedge a live workout.
type Engine struct {
	tracker  *Tracker
	store    SessionStore
	notifier Notifier
	feedback FeedbackSink
	log      *slog.Logger
	tick     time.Duration

	ops       chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithTickInterval overrides the one-second timer cadence. Tests shorten it.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tick = d
		}
	}
}

// WithDefaultRest sets the rest duration used when an exercise has no
// per-exercise override.
func WithDefaultRest(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tracker.defaultRest = d
		}
	}
}

// WithClock injects the time source. Tests use a fixed or stepped clock.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.tracker.nowFn = fn
		}
	}
}

// New constructs an engine with its collaborators injected and starts the
// run loop. store, notifier, and feedback may be nil.
func New(store SessionStore, notifier Notifier, feedback FeedbackSink, log *slog.Logger, opts ...Option) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if feedback == nil {
		feedback = NopFeedback{}
	}
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		tracker:  NewTracker(DefaultRestDuration),
		store:    store,
		notifier: notifier,
		feedback: feedback,
		log:      log,
		tick:     time.Second,
		ops:      make(chan func()),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	go e.run()
	return e
}

// Close stops the run loop and both timers. Pending operations are dropped.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.quit)
	})
	<-e.done
}

func (e *Engine) run() {
	var elapsedTicker, restTicker *time.Ticker
	var elapsedC, restC <-chan time.Time
	prev := StateIdle

	// reconcile aligns timer handles with the tracker state after every
	// message. Creating a ticker only when its handle is nil is the
	// re-entry guard against duplicate ticking from a double start.
	reconcile := func() {
		st := e.tracker.State()
		if st.Running() && elapsedTicker == nil {
			elapsedTicker = time.NewTicker(e.tick)
			elapsedC = elapsedTicker.C
		}
		if !st.Running() && elapsedTicker != nil {
			elapsedTicker.Stop()
			elapsedTicker, elapsedC = nil, nil
		}
		if st == StateResting && prev != StateResting {
			if restTicker != nil {
				restTicker.Stop()
			}
			restTicker = time.NewTicker(e.tick)
			restC = restTicker.C
		}
		if st != StateResting && restTicker != nil {
			restTicker.Stop()
			restTicker, restC = nil, nil
		}
		prev = st
	}

	for {
		select {
		case fn := <-e.ops:
			fn()
		case <-elapsedC:
			e.notifier.StateChanged(e.tracker.Snapshot())
		case <-restC:
			if e.tracker.TickRest() {
				e.feedback.Emit(EventRestExpired)
			}
			e.notifier.StateChanged(e.tracker.Snapshot())
		case <-e.quit:
			if elapsedTicker != nil {
				elapsedTicker.Stop()
			}
			if restTicker != nil {
				restTicker.Stop()
			}
			close(e.done)
			return
		}
		reconcile()
	}
}

// do posts fn to the run loop and waits for it to execute.
func (e *Engine) do(fn func()) {
	applied := make(chan struct{})
	select {
	case e.ops <- func() { fn(); close(applied) }:
		<-applied
	case <-e.done:
	}
}

func (e *Engine) persist(what string, fn func(context.Context) error) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		e.log.Error("session store", "op", what, "error", err)
	}
}

func (e *Engine) emit() {
	e.notifier.StateChanged(e.tracker.Snapshot())
}

// Start begins a fresh session and inserts it into the store.
func (e *Engine) Start(s *models.Session) bool {
	var ok bool
	e.do(func() {
		ok = e.tracker.Start(s)
		if !ok {
			return
		}
		e.persist("insert", func(ctx context.Context) error {
			return e.store.InsertSession(ctx, s)
		})
		e.emit()
	})
	return ok
}

// Resume continues a paused or persisted session at its first incomplete set.
func (e *Engine) Resume(s *models.Session) bool {
	var ok bool
	e.do(func() {
		ok = e.tracker.Resume(s)
		if ok {
			e.emit()
		}
	})
	return ok
}

// Pause holds the session, saving accumulated progress to the store.
func (e *Engine) Pause() bool {
	var ok bool
	e.do(func() {
		ok = e.tracker.Pause()
		if !ok {
			return
		}
		e.persist("save", func(ctx context.Context) error {
			return e.store.SaveSession(ctx, e.tracker.Session())
		})
		e.emit()
	})
	return ok
}

// CompleteCurrentSet records values on the current set and advances.
func (e *Engine) CompleteCurrentSet(v models.SetValues) bool {
	var ok bool
	e.do(func() {
		ok = e.tracker.CompleteCurrentSet(v)
		if !ok {
			return
		}
		e.feedback.Emit(EventSetCompleted)
		e.emit()
	})
	return ok
}

// SkipRest ends the rest countdown immediately.
func (e *Engine) SkipRest() bool {
	var ok bool
	e.do(func() {
		ok = e.tracker.SkipRest()
		if ok {
			e.emit()
		}
	})
	return ok
}

// AddRestTime extends (or shortens, clamped at zero) the running rest.
func (e *Engine) AddRestTime(d time.Duration) bool {
	var ok bool
	e.do(func() {
		ok = e.tracker.AddRestTime(d)
		if ok {
			e.emit()
		}
	})
	return ok
}

// SelectExercise jumps to the named exercise at its first incomplete set.
func (e *Engine) SelectExercise(id uuid.UUID) bool {
	var ok bool
	e.do(func() {
		ok = e.tracker.SelectExercise(id)
		if ok {
			e.emit()
		}
	})
	return ok
}

// MoveExercise reorders the exercise list, keeping the user's focus stable.
func (e *Engine) MoveExercise(from, to int) bool {
	var ok bool
	e.do(func() {
		ok = e.tracker.MoveExercise(from, to)
		if !ok {
			return
		}
		e.feedback.Emit(EventExerciseReordered)
		e.emit()
	})
	return ok
}

// End finalizes and saves the session, returning it to the caller. Returns
// nil when no session is active.
func (e *Engine) End() *models.Session {
	var s *models.Session
	e.do(func() {
		s = e.tracker.End()
		if s == nil {
			return
		}
		e.persist("save", func(ctx context.Context) error {
			return e.store.SaveSession(ctx, s)
		})
		e.emit()
	})
	return s
}

// Discard abandons the session and deletes it from the store.
func (e *Engine) Discard() bool {
	var s *models.Session
	e.do(func() {
		s = e.tracker.Discard()
		if s == nil {
			return
		}
		e.persist("delete", func(ctx context.Context) error {
			return e.store.DeleteSession(ctx, s.ID)
		})
		e.emit()
	})
	return s != nil
}

// SessionID returns the loaded session's ID, or uuid.Nil when idle.
func (e *Engine) SessionID() uuid.UUID {
	var id uuid.UUID
	e.do(func() {
		if s := e.tracker.Session(); s != nil {
			id = s.ID
		}
	})
	return id
}

// Snapshot returns the current read-only engine state.
func (e *Engine) Snapshot() Snapshot {
	var snap Snapshot
	e.do(func() { snap = e.tracker.Snapshot() })
	return snap
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	var st State
	e.do(func() { st = e.tracker.State() })
	if st == "" {
		st = StateIdle
	}
	return st
}

// IsWorkoutActive reports whether a session is loaded.
func (e *Engine) IsWorkoutActive() bool {
	var active bool
	e.do(func() { active = e.tracker.IsWorkoutActive() })
	return active
}

// IsWorkoutComplete reports whether every set of the session is done.
func (e *Engine) IsWorkoutComplete() bool {
	var complete bool
	e.do(func() { complete = e.tracker.IsWorkoutComplete() })
	return complete
}
