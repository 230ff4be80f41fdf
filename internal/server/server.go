package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/repflow/internal/engine"
	"github.com/claude/repflow/internal/localstore"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Store is the read side of session persistence the handlers need. Both the
// Postgres store and the embedded SQLite store satisfy it.
type Store interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	QueryRecentSessions(ctx context.Context, limit int) ([]storage.SessionSummary, error)
	LastPerformance(ctx context.Context, exerciseName string, setIndex int, excludeSessionID uuid.UUID) (*models.Performance, error)
}

var (
	_ Store = (*storage.DB)(nil)
	_ Store = (*localstore.DB)(nil)
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	engine *engine.Engine
	store  Store
	stream *Broadcaster
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(eng *engine.Engine, store Store, stream *Broadcaster, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		engine: eng,
		store:  store,
		stream: stream,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			// Read endpoints (no auth — tsnet handles access)
			r.Get("/state", s.handleState)
			r.Get("/stream", s.handleStream)

			// Control endpoints (API key required)
			r.Group(func(r chi.Router) {
				r.Use(APIKeyAuth(s.apiKey))
				r.Post("/start", s.handleStart)
				r.Post("/resume", s.handleResume)
				r.Post("/pause", s.handlePause)
				r.Post("/end", s.handleEnd)
				r.Post("/discard", s.handleDiscard)
				r.Post("/sets/complete", s.handleCompleteSet)
				r.Post("/rest/skip", s.handleSkipRest)
				r.Post("/rest/add", s.handleAddRest)
				r.Post("/exercises/select", s.handleSelectExercise)
				r.Post("/exercises/move", s.handleMoveExercise)
			})
		})

		r.Get("/history/last", s.handleLastPerformance)
		r.Get("/sessions", s.handleRecentSessions)
	})
}

// Mount attaches an additional handler subtree, such as the MCP endpoint.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}
