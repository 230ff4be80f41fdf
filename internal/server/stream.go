package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/claude/repflow/internal/engine"
)

// Broadcaster fans engine snapshots out to SSE subscribers. It implements
// engine.Notifier, so wiring it into the engine's notifier chain is all the
// integration the stream needs.
//
// Sends never block the engine: a subscriber whose buffer is full misses that
// snapshot and catches up on the next one. Snapshots are absolute state, so a
// dropped frame costs nothing.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan engine.Snapshot]struct{}
	last engine.Snapshot
	log  *slog.Logger
}

// NewBroadcaster returns an empty broadcaster. log may be nil.
func NewBroadcaster(log *slog.Logger) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{
		subs: make(map[chan engine.Snapshot]struct{}),
		last: engine.Snapshot{State: engine.StateIdle},
		log:  log,
	}
}

// StateChanged implements engine.Notifier.
func (b *Broadcaster) StateChanged(snap engine.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = snap
	for ch := range b.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// subscribe registers a new listener and returns it primed with the latest
// snapshot so clients render immediately on connect.
func (b *Broadcaster) subscribe() chan engine.Snapshot {
	ch := make(chan engine.Snapshot, 8)
	b.mu.Lock()
	ch <- b.last
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broadcaster) unsubscribe(ch chan engine.Snapshot) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// handleStream serves snapshots over server-sent events until the client
// disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.stream.subscribe()
	defer s.stream.unsubscribe(ch)

	for {
		select {
		case snap := <-ch:
			data, err := json.Marshal(snap)
			if err != nil {
				s.log.Error("marshaling snapshot", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
