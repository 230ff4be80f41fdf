package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/repflow/internal/engine"
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource and Live by calling the RepFlow REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but the
// session lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var (
	_ DataSource = (*HTTPClient)(nil)
	_ Live       = (*HTTPClient)(nil)
)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

// Snapshot implements Live. A server that cannot be reached reads as idle so
// MCP clients degrade to "no active session" rather than erroring.
func (c *HTTPClient) Snapshot() engine.Snapshot {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	body, err := c.get(ctx, "/api/v1/session/state", nil)
	if err != nil {
		return engine.Snapshot{State: engine.StateIdle}
	}

	var snap engine.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return engine.Snapshot{State: engine.StateIdle}
	}
	return snap
}

// SessionID implements Live. The remote server already excludes its active
// session from history lookups, so the client never needs the real ID.
func (c *HTTPClient) SessionID() uuid.UUID {
	return uuid.Nil
}

// QueryRecentSessions implements DataSource via GET /api/v1/sessions.
func (c *HTTPClient) QueryRecentSessions(ctx context.Context, limit int) ([]storage.SessionSummary, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.get(ctx, "/api/v1/sessions", params)
	if err != nil {
		return nil, err
	}

	var sessions []storage.SessionSummary
	if err := json.Unmarshal(body, &sessions); err != nil {
		return nil, fmt.Errorf("httpclient: decode sessions: %w", err)
	}
	return sessions, nil
}

// LastPerformance implements DataSource via GET /api/v1/history/last.
func (c *HTTPClient) LastPerformance(ctx context.Context, exerciseName string, setIndex int, _ uuid.UUID) (*models.Performance, error) {
	params := url.Values{}
	params.Set("exercise", exerciseName)
	params.Set("set_index", strconv.Itoa(setIndex))

	body, err := c.get(ctx, "/api/v1/history/last", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Found       bool                `json:"found"`
		Performance *models.Performance `json:"performance"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("httpclient: decode history: %w", err)
	}
	if !resp.Found {
		return nil, nil
	}
	return resp.Performance, nil
}
