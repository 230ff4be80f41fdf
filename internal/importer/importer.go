// Package importer loads exported workout session archives into the session
// store. An archive is a directory of JSON files, each holding either a single
// session or an array of sessions.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
)

// Store is the persistence surface the importer needs.
type Store interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	InsertSession(ctx context.Context, s *models.Session) error
}

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	SessionsImported   int
	SessionsDuplicated int
	SessionsInvalid    int
}

// Importer reads session JSON files from an archive directory and inserts
// them into the store.
type Importer struct {
	store  Store
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer.
func New(store Store, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{store: store, log: log, dryRun: dryRun}
}

// Import processes all .json files under the given directory, in name order.
// Files that fail to parse are counted and skipped; a filesystem error aborts.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading archive directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			imp.stats.FilesSkipped++
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	for _, name := range files {
		path := filepath.Join(dir, name)
		sessions, err := readSessions(path)
		if err != nil {
			imp.log.Warn("skipping unreadable file", "file", name, "error", err)
			imp.stats.FilesErrored++
			continue
		}
		imp.stats.FilesProcessed++

		for _, s := range sessions {
			if err := imp.importSession(ctx, s); err != nil {
				return &imp.stats, fmt.Errorf("importing session from %s: %w", name, err)
			}
		}
	}

	return &imp.stats, nil
}

// readSessions decodes a file holding either one session or an array.
func readSessions(path string) ([]*models.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var many []*models.Session
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}

	var one models.Session
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return []*models.Session{&one}, nil
}

func (imp *Importer) importSession(ctx context.Context, s *models.Session) error {
	if s == nil || s.ID == uuid.Nil || s.StartTime.IsZero() {
		imp.stats.SessionsInvalid++
		imp.log.Warn("skipping invalid session", "reason", "missing id or start time")
		return nil
	}
	if len(s.Exercises) == 0 {
		imp.stats.SessionsInvalid++
		imp.log.Warn("skipping invalid session", "id", s.ID, "reason", "no exercises")
		return nil
	}

	if existing, err := imp.store.GetSession(ctx, s.ID); err == nil && existing != nil {
		imp.stats.SessionsDuplicated++
		return nil
	}

	s.Normalize()
	if !imp.dryRun {
		if err := imp.store.InsertSession(ctx, s); err != nil {
			return fmt.Errorf("inserting session %s: %w", s.ID, err)
		}
	}
	imp.stats.SessionsImported++
	return nil
}
