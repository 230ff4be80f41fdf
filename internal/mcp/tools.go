package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolGetActiveSession = mcp.NewTool("get_active_session",
	mcp.WithDescription("Get the live workout snapshot: lifecycle state, current exercise, set number, elapsed seconds, and rest countdown. Returns state 'idle' when no session is loaded."),
)

var toolGetLastPerformance = mcp.NewTool("get_last_performance",
	mcp.WithDescription("Look up what was lifted the last time an exercise was performed at a given set position. Searches completed sessions newest-first, excluding the in-progress one. Returns found=false when there is no history."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name (exact match, e.g. 'Bench Press')")),
	mcp.WithNumber("set_index", mcp.Description("Zero-based set position within the exercise. Defaults to 0.")),
)

var toolGetRecentSessions = mcp.NewTool("get_recent_sessions",
	mcp.WithDescription("List completed workout sessions newest-first with exercise and set counts."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sessions to return. Defaults to 10.")),
)

// --- Tool handlers ---

func (h *handlers) getActiveSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(h.live.Snapshot())
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getLastPerformance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	setIndex := req.GetInt("set_index", 0)
	if setIndex < 0 {
		return mcp.NewToolResultError("set_index must not be negative"), nil
	}

	p, err := h.ds.LastPerformance(ctx, exercise, setIndex, h.live.SessionID())
	if err != nil {
		h.log.Error("mcp get_last_performance", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	payload := map[string]any{"found": p != nil}
	if p != nil {
		payload["performance"] = p
	}
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRecentSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 10)
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	sessions, err := h.ds.QueryRecentSessions(ctx, limit)
	if err != nil {
		h.log.Error("mcp get_recent_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sessions)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
