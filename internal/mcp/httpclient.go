package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/recoverycoach/internal/models"
	"github.com/claude/recoverycoach/internal/recovery"
)

// HTTPClient implements DataSource by calling the coachd REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// sessions live on the remote server.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, payload any) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, respBody)
	}

	return respBody, nil
}

func uidParams(uid string) url.Values {
	v := url.Values{}
	v.Set("uid", uid)
	return v
}

func (c *HTTPClient) Recovery(ctx context.Context, uid string) (recovery.Report, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/recovery", uidParams(uid), nil)
	if err != nil {
		return recovery.Report{}, err
	}

	var report recovery.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return recovery.Report{}, fmt.Errorf("httpclient: decode recovery: %w", err)
	}
	return report, nil
}

func (c *HTTPClient) RecordWorkout(ctx context.Context, in models.WorkoutInput) (models.WorkoutEntry, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/v1/workouts", nil, in)
	if err != nil {
		return models.WorkoutEntry{}, err
	}

	var entry models.WorkoutEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		return models.WorkoutEntry{}, fmt.Errorf("httpclient: decode workout: %w", err)
	}
	return entry, nil
}

func (c *HTTPClient) Workouts(ctx context.Context, uid string) ([]models.WorkoutEntry, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/workouts", uidParams(uid), nil)
	if err != nil {
		return nil, err
	}

	var entries []models.WorkoutEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("httpclient: decode workouts: %w", err)
	}
	return entries, nil
}

func (c *HTTPClient) ChatHistory(ctx context.Context, uid string) ([]models.ChatTurn, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/chat", uidParams(uid), nil)
	if err != nil {
		return nil, err
	}

	var turns []models.ChatTurn
	if err := json.Unmarshal(body, &turns); err != nil {
		return nil, fmt.Errorf("httpclient: decode chat: %w", err)
	}
	return turns, nil
}
