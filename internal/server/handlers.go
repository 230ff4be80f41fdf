package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
)

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var sess models.Session
	if err := json.NewDecoder(r.Body).Decode(&sess); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if len(sess.Exercises) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session has no exercises"})
		return
	}

	fillIdentifiers(&sess)
	if sess.StartTime.IsZero() {
		sess.StartTime = time.Now().UTC()
	}

	if !s.engine.Start(&sess) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a session is already in progress"})
		return
	}
	writeJSON(w, http.StatusCreated, s.engine.Snapshot())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID *uuid.UUID `json:"session_id"`
	}
	// An empty body resumes the paused in-memory session.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var sess *models.Session
	if req.SessionID != nil {
		var err error
		sess, err = s.store.GetSession(r.Context(), *req.SessionID)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
	}

	if !s.engine.Resume(sess) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "nothing to resume"})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Pause() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no session to pause"})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	sess := s.engine.End()
	if sess == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no session to end"})
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Discard() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no session to discard"})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	var values models.SetValues
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if !s.engine.CompleteCurrentSet(values) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no current set to complete"})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleSkipRest(w http.ResponseWriter, r *http.Request) {
	if !s.engine.SkipRest() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "not resting"})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleAddRest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Seconds == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seconds must be non-zero"})
		return
	}

	if !s.engine.AddRestTime(time.Duration(req.Seconds) * time.Second) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "not resting"})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleSelectExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseID uuid.UUID `json:"exercise_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if !s.engine.SelectExercise(req.ExerciseID) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "exercise not found or no active session"})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleMoveExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if !s.engine.MoveExercise(req.From, req.To) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invalid move"})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleLastPerformance(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("exercise")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise parameter required"})
		return
	}
	setIndex := 0
	if v := r.URL.Query().Get("set_index"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid set_index"})
			return
		}
		setIndex = n
	}

	p, err := s.store.LastPerformance(r.Context(), name, setIndex, s.engine.SessionID())
	if err != nil {
		s.log.Error("history lookup", "exercise", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if p == nil {
		// Absence of history is data, not an error.
		writeJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"found": true, "performance": p})
}

func (s *Server) handleRecentSessions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	sessions, err := s.store.QueryRecentSessions(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// fillIdentifiers assigns UUIDs to any session, exercise, or set the client
// sent without one.
func fillIdentifiers(s *models.Session) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	for _, ex := range s.Exercises {
		if ex.ID == uuid.Nil {
			ex.ID = uuid.New()
		}
		for _, st := range ex.Sets {
			if st.ID == uuid.Nil {
				st.ID = uuid.New()
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
