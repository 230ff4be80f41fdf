package mcp

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/claude/repflow/internal/engine"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// stubDataSource records query arguments and serves canned results.
type stubDataSource struct {
	performance *models.Performance
	summaries   []storage.SessionSummary
	gotLimit    int
	gotExercise string
	gotSetIndex int
}

func (s *stubDataSource) QueryRecentSessions(_ context.Context, limit int) ([]storage.SessionSummary, error) {
	s.gotLimit = limit
	return s.summaries, nil
}

func (s *stubDataSource) LastPerformance(_ context.Context, exercise string, setIndex int, _ uuid.UUID) (*models.Performance, error) {
	s.gotExercise = exercise
	s.gotSetIndex = setIndex
	return s.performance, nil
}

func newTestHandlers(t *testing.T, ds *stubDataSource) (*handlers, *engine.Engine) {
	t.Helper()
	if ds == nil {
		ds = &stubDataSource{}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(nil, nil, nil, log)
	t.Cleanup(eng.Close)
	return &handlers{live: eng, ds: ds, log: log}, eng
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

// TestGetActiveSessionIdle verifies the snapshot tool reports idle with no
// session loaded.
func TestGetActiveSessionIdle(t *testing.T) {
	h, _ := newTestHandlers(t, nil)

	res, err := h.getActiveSession(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if text := resultText(t, res); !strings.Contains(text, `"state":"idle"`) {
		t.Errorf("result = %s, want idle state", text)
	}
}

// TestGetLastPerformanceRequiresExercise verifies the missing-parameter error.
func TestGetLastPerformanceRequiresExercise(t *testing.T) {
	h, _ := newTestHandlers(t, nil)

	res, err := h.getLastPerformance(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError {
		t.Error("expected tool error for missing exercise")
	}
}

// TestGetLastPerformanceHit verifies a history hit round-trips weight and reps.
func TestGetLastPerformanceHit(t *testing.T) {
	weight := 102.5
	reps := 5
	ds := &stubDataSource{performance: &models.Performance{WeightKg: &weight, Reps: &reps}}
	h, _ := newTestHandlers(t, ds)

	res, err := h.getLastPerformance(context.Background(), callRequest(map[string]any{
		"exercise":  "Deadlift",
		"set_index": 2,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if ds.gotExercise != "Deadlift" || ds.gotSetIndex != 2 {
		t.Errorf("query args = %q/%d, want Deadlift/2", ds.gotExercise, ds.gotSetIndex)
	}
	text := resultText(t, res)
	if !strings.Contains(text, `"found":true`) || !strings.Contains(text, "102.5") {
		t.Errorf("result = %s, want found with 102.5", text)
	}
}

// TestGetLastPerformanceMiss verifies found=false for absent history.
func TestGetLastPerformanceMiss(t *testing.T) {
	h, _ := newTestHandlers(t, &stubDataSource{})

	res, err := h.getLastPerformance(context.Background(), callRequest(map[string]any{
		"exercise": "Zercher Squat",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, `"found":false`) {
		t.Errorf("result = %s, want found false", text)
	}
}

// TestGetRecentSessionsDefaults verifies the default limit of 10.
func TestGetRecentSessionsDefaults(t *testing.T) {
	ds := &stubDataSource{summaries: []storage.SessionSummary{{ID: uuid.New(), Title: "Leg Day"}}}
	h, _ := newTestHandlers(t, ds)

	res, err := h.getRecentSessions(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if ds.gotLimit != 10 {
		t.Errorf("limit = %d, want default 10", ds.gotLimit)
	}
	if text := resultText(t, res); !strings.Contains(text, "Leg Day") {
		t.Errorf("result = %s, want Leg Day", text)
	}
}

// TestGetRecentSessionsRejectsBadLimit verifies limit validation.
func TestGetRecentSessionsRejectsBadLimit(t *testing.T) {
	h, _ := newTestHandlers(t, nil)

	res, err := h.getRecentSessions(context.Background(), callRequest(map[string]any{"limit": -1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError {
		t.Error("expected tool error for negative limit")
	}
}

// TestActiveSessionResource verifies the resource mirrors the live snapshot.
func TestActiveSessionResource(t *testing.T) {
	h, eng := newTestHandlers(t, nil)
	eng.Start(&models.Session{
		ID:    uuid.New(),
		Title: "Morning Push",
		Exercises: []*models.Exercise{
			{ID: uuid.New(), Name: "Overhead Press", Sets: []*models.Set{{ID: uuid.New()}}},
		},
	})

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "repflow://active_session"
	contents, err := h.activeSession(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents type = %T", contents[0])
	}
	if tc.URI != "repflow://active_session" || tc.MIMEType != "application/json" {
		t.Errorf("uri/mime = %q/%q", tc.URI, tc.MIMEType)
	}
	if !strings.Contains(tc.Text, "Morning Push") || !strings.Contains(tc.Text, "Overhead Press") {
		t.Errorf("resource text = %s", tc.Text)
	}
}
