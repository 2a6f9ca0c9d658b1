package mcp

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MCPServer exposes the channel-pulse API as MCP tools over stdio
type MCPServer struct {
	server *sdk.Server
	client *Client
	logger zerolog.Logger
}

// NewServer creates the MCP server and registers its tools
func NewServer(client *Client, version string) *MCPServer {
	if version == "" {
		version = "v1.0.0"
	}
	s := &MCPServer{
		server: sdk.NewServer(&sdk.Implementation{
			Name:    "channel-pulse",
			Version: version,
		}, nil),
		client: client,
		logger: log.With().Str("component", "mcp").Logger(),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdin/stdout until the client disconnects or ctx ends
func (s *MCPServer) Run(ctx context.Context) error {
	s.logger.Info().Msg("Serving MCP over stdio")
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

func (s *MCPServer) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pulse_refresh_server",
		Description: "Sync and summarize every monitored channel of a server, then compute fresh server stats. Long runs continue in the background; when status is processing, call pulse_latest_stats after retry_after_seconds.",
	}, s.handleRefreshServer)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pulse_generate_summary",
		Description: "Summarize the last hour of a channel. When status is processing, call pulse_latest_summary after retry_after_seconds.",
	}, s.handleGenerateSummary)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pulse_latest_stats",
		Description: "Get the most recent stored stats of a server: messages, active users, active channels and percent change versus the previous run.",
	}, s.handleLatestStats)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pulse_latest_summary",
		Description: "Get the most recent stored summary of a channel. placeholder=true means no activity has been analyzed yet.",
	}, s.handleLatestSummary)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pulse_list_servers",
		Description: "List the servers known to channel-pulse, with their channels.",
	}, s.handleListServers)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pulse_monitor_states",
		Description: "List the activity baseline and last automatic analysis time of every monitored channel.",
	}, s.handleMonitorStates)
}

// ServerInput identifies a server
type ServerInput struct {
	ServerID string `json:"server_id" jsonschema:"The server (guild, workspace or tenant) id"`
}

// ChannelInput identifies a channel
type ChannelInput struct {
	ChannelID string `json:"channel_id" jsonschema:"The channel id"`
}

// RefreshServerOutput is the output of pulse_refresh_server
type RefreshServerOutput struct {
	Status            string `json:"status"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	Stats             *Stats `json:"stats,omitempty"`
	Error             string `json:"error,omitempty"`
}

func (s *MCPServer) handleRefreshServer(ctx context.Context, req *sdk.CallToolRequest, input ServerInput) (*sdk.CallToolResult, RefreshServerOutput, error) {
	if input.ServerID == "" {
		return nil, RefreshServerOutput{Error: "server_id is required"}, nil
	}
	status, stats, err := s.client.RefreshServer(ctx, input.ServerID)
	if err != nil {
		return nil, RefreshServerOutput{Error: describe(err)}, nil
	}
	return nil, RefreshServerOutput{
		Status:            status.Status,
		RetryAfterSeconds: status.RetryAfterSeconds,
		Stats:             stats,
	}, nil
}

// GenerateSummaryOutput is the output of pulse_generate_summary
type GenerateSummaryOutput struct {
	Status            string   `json:"status"`
	RetryAfterSeconds int      `json:"retry_after_seconds,omitempty"`
	Summary           *Summary `json:"summary,omitempty"`
	Error             string   `json:"error,omitempty"`
}

func (s *MCPServer) handleGenerateSummary(ctx context.Context, req *sdk.CallToolRequest, input ChannelInput) (*sdk.CallToolResult, GenerateSummaryOutput, error) {
	if input.ChannelID == "" {
		return nil, GenerateSummaryOutput{Error: "channel_id is required"}, nil
	}
	status, summary, err := s.client.GenerateSummary(ctx, input.ChannelID)
	if err != nil {
		return nil, GenerateSummaryOutput{Error: describe(err)}, nil
	}
	return nil, GenerateSummaryOutput{
		Status:            status.Status,
		RetryAfterSeconds: status.RetryAfterSeconds,
		Summary:           summary,
	}, nil
}

// LatestStatsOutput is the output of pulse_latest_stats
type LatestStatsOutput struct {
	Stats *Stats `json:"stats,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *MCPServer) handleLatestStats(ctx context.Context, req *sdk.CallToolRequest, input ServerInput) (*sdk.CallToolResult, LatestStatsOutput, error) {
	if input.ServerID == "" {
		return nil, LatestStatsOutput{Error: "server_id is required"}, nil
	}
	stats, err := s.client.LatestStats(ctx, input.ServerID)
	if err != nil {
		return nil, LatestStatsOutput{Error: describe(err)}, nil
	}
	return nil, LatestStatsOutput{Stats: stats}, nil
}

// LatestSummaryOutput is the output of pulse_latest_summary
type LatestSummaryOutput struct {
	Summary *Summary `json:"summary,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func (s *MCPServer) handleLatestSummary(ctx context.Context, req *sdk.CallToolRequest, input ChannelInput) (*sdk.CallToolResult, LatestSummaryOutput, error) {
	if input.ChannelID == "" {
		return nil, LatestSummaryOutput{Error: "channel_id is required"}, nil
	}
	summary, err := s.client.LatestSummary(ctx, input.ChannelID)
	if err != nil {
		return nil, LatestSummaryOutput{Error: describe(err)}, nil
	}
	return nil, LatestSummaryOutput{Summary: summary}, nil
}

// ListServersInput is empty - no input needed
type ListServersInput struct{}

// ServerWithChannels is a server and its channels
type ServerWithChannels struct {
	Server
	Channels []Channel `json:"channels"`
}

// ListServersOutput is the output of pulse_list_servers
type ListServersOutput struct {
	Servers []ServerWithChannels `json:"servers"`
	Error   string               `json:"error,omitempty"`
}

func (s *MCPServer) handleListServers(ctx context.Context, req *sdk.CallToolRequest, input ListServersInput) (*sdk.CallToolResult, ListServersOutput, error) {
	servers, err := s.client.ListServers(ctx)
	if err != nil {
		return nil, ListServersOutput{Error: describe(err)}, nil
	}

	out := ListServersOutput{Servers: make([]ServerWithChannels, 0, len(servers))}
	for _, srv := range servers {
		channels, err := s.client.ListChannels(ctx, srv.ID)
		if err != nil {
			return nil, ListServersOutput{Error: describe(err)}, nil
		}
		out.Servers = append(out.Servers, ServerWithChannels{Server: srv, Channels: channels})
	}
	return nil, out, nil
}

// MonitorStatesInput is empty - no input needed
type MonitorStatesInput struct{}

// MonitorStatesOutput is the output of pulse_monitor_states
type MonitorStatesOutput struct {
	States []MonitorState `json:"states"`
	Error  string         `json:"error,omitempty"`
}

func (s *MCPServer) handleMonitorStates(ctx context.Context, req *sdk.CallToolRequest, input MonitorStatesInput) (*sdk.CallToolResult, MonitorStatesOutput, error) {
	states, err := s.client.MonitorStates(ctx)
	if err != nil {
		return nil, MonitorStatesOutput{Error: describe(err)}, nil
	}
	return nil, MonitorStatesOutput{States: states}, nil
}

// describe turns API errors into short tool messages
func describe(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
		return fmt.Sprintf("not found: %s", apiErr.Body)
	}
	return err.Error()
}
