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
)

// Client is the HTTP client for the channel-pulse API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Longer than the API's refresh wait, which answers 202 when exceeded
			Timeout: 150 * time.Second,
		},
	}
}

// Stats is a server stats record as served by the API
type Stats struct {
	ID             string        `json:"id"`
	ServerID       string        `json:"server_id"`
	TotalMessages  int           `json:"total_messages"`
	ActiveUsers    int           `json:"active_users"`
	ActiveChannels int           `json:"active_channels"`
	PercentChange  PercentChange `json:"percent_change"`
	GeneratedAt    string        `json:"generated_at"`
}

// PercentChange holds signed percentage changes versus the previous run
type PercentChange struct {
	Messages float64 `json:"messages"`
	Users    float64 `json:"users"`
	Channels float64 `json:"channels"`
}

// Summary is a channel summary as served by the API
type Summary struct {
	ID           string   `json:"id,omitempty"`
	ChannelID    string   `json:"channel_id"`
	Summary      string   `json:"summary"`
	MessageCount int      `json:"message_count"`
	ActiveUsers  int      `json:"active_users"`
	KeyTopics    []string `json:"key_topics"`
	GeneratedAt  string   `json:"generated_at"`
	Placeholder  bool     `json:"placeholder"`
}

// Server is a chat server known to the API
type Server struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Platform   string `json:"platform"`
	LastSynced string `json:"last_synced,omitempty"`
}

// Channel is a channel of a server
type Channel struct {
	ID       string `json:"id"`
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
}

// MonitorState is the activity baseline of one channel
type MonitorState struct {
	ChannelID                string `json:"channel_id"`
	LastObservedMessageCount int    `json:"last_observed_message_count"`
	LastAnalysisAt           string `json:"last_analysis_at,omitempty"`
}

// JobStatus tells whether an on-demand analysis finished within the API's wait
type JobStatus struct {
	Status            string `json:"status"` // completed, processing
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// Processing reports whether the job continues in the background
func (s JobStatus) Processing() bool {
	return s.Status == "processing"
}

// ============ Analyses ============

// RefreshServer runs a server analysis. Stats is nil while still processing.
func (c *Client) RefreshServer(ctx context.Context, serverID string) (*JobStatus, *Stats, error) {
	var result struct {
		JobStatus
		Stats *Stats `json:"stats"`
	}
	if err := c.post(ctx, fmt.Sprintf("/api/servers/%s/refresh", url.PathEscape(serverID)), nil, &result); err != nil {
		return nil, nil, err
	}
	return &result.JobStatus, result.Stats, nil
}

// GenerateSummary summarizes a channel. Summary is nil while still processing.
func (c *Client) GenerateSummary(ctx context.Context, channelID string) (*JobStatus, *Summary, error) {
	var result struct {
		JobStatus
		Summary *Summary `json:"summary"`
	}
	if err := c.post(ctx, fmt.Sprintf("/api/channels/%s/summary", url.PathEscape(channelID)), nil, &result); err != nil {
		return nil, nil, err
	}
	return &result.JobStatus, result.Summary, nil
}

// ============ Stored Results ============

// LatestStats gets the latest stats of a server
func (c *Client) LatestStats(ctx context.Context, serverID string) (*Stats, error) {
	var stats Stats
	if err := c.get(ctx, fmt.Sprintf("/api/servers/%s/stats", url.PathEscape(serverID)), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// LatestSummary gets the latest summary of a channel, placeholder included
func (c *Client) LatestSummary(ctx context.Context, channelID string) (*Summary, error) {
	var summary Summary
	if err := c.get(ctx, fmt.Sprintf("/api/channels/%s/summary", url.PathEscape(channelID)), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListServers lists the known servers
func (c *Client) ListServers(ctx context.Context) ([]Server, error) {
	var result struct {
		Servers []Server `json:"servers"`
	}
	if err := c.get(ctx, "/api/servers", &result); err != nil {
		return nil, err
	}
	return result.Servers, nil
}

// ListChannels lists the channels of a server
func (c *Client) ListChannels(ctx context.Context, serverID string) ([]Channel, error) {
	var result struct {
		Channels []Channel `json:"channels"`
	}
	if err := c.get(ctx, fmt.Sprintf("/api/servers/%s/channels", url.PathEscape(serverID)), &result); err != nil {
		return nil, err
	}
	return result.Channels, nil
}

// MonitorStates lists the monitor states of all channels
func (c *Client) MonitorStates(ctx context.Context) ([]MonitorState, error) {
	var result struct {
		States []MonitorState `json:"states"`
	}
	if err := c.get(ctx, "/api/monitor/states", &result); err != nil {
		return nil, err
	}
	return result.States, nil
}

// ============ HTTP Helpers ============

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP %s failed: %w", req.Method, err)
	}
	defer resp.Body.Close()

	// 202 carries a processing body for on-demand analyses
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// APIError is returned for non-success HTTP statuses
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
