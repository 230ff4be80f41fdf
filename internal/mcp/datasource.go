package mcp

import (
	"context"

	"github.com/claude/repflow/internal/engine"
	"github.com/claude/repflow/internal/localstore"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the session history layer for MCP tools. The Postgres
// store, the embedded SQLite store, and HTTPClient (remote via REST API) all
// satisfy this interface.
type DataSource interface {
	QueryRecentSessions(ctx context.Context, limit int) ([]storage.SessionSummary, error)
	LastPerformance(ctx context.Context, exerciseName string, setIndex int, excludeSessionID uuid.UUID) (*models.Performance, error)
}

// Live is the view of the in-progress session. The local engine satisfies it
// directly; HTTPClient satisfies it by querying the remote server.
type Live interface {
	Snapshot() engine.Snapshot
	SessionID() uuid.UUID
}

var (
	_ DataSource = (*storage.DB)(nil)
	_ DataSource = (*localstore.DB)(nil)
	_ Live       = (*engine.Engine)(nil)
)
