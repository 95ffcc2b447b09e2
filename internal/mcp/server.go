// Package mcp exposes the conversation history store as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devricklin/feishu-assistant/internal/biz/repo"
)

// Server provides MCP tools over the history store
type Server struct {
	server      *mcp.Server
	historyRepo repo.HistoryRepo
}

// NewServer creates a new MCP server
func NewServer(historyRepo repo.HistoryRepo, version string) *Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "assistant-history",
		Version: version,
	}, nil)

	s := &Server{server: server, historyRepo: historyRepo}
	s.registerTools()
	return s
}

// registerTools registers all history tools
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_speakers",
		Description: "List conversation speakers (contacts or group topics) with stored history or a prompt override.",
	}, s.handleListSpeakers)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_history",
		Description: "Get the system prompt and the recent turns of one speaker.",
	}, s.handleGetHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_prompt",
		Description: "Set the system prompt override of one speaker. An empty prompt restores the default.",
	}, s.handleSetPrompt)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear_history",
		Description: "Remove all stored turns of one speaker.",
	}, s.handleClearHistory)
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// ListSpeakersInput is empty - no input needed
type ListSpeakersInput struct{}

// SpeakerInfo is one speaker summary
type SpeakerInfo struct {
	Speaker    string `json:"speaker"`
	TurnCount  int    `json:"turn_count"`
	HasPrompt  bool   `json:"has_prompt"`
	LastActive string `json:"last_active"`
}

// ListSpeakersOutput contains the speakers
type ListSpeakersOutput struct {
	Speakers []SpeakerInfo `json:"speakers"`
}

func (s *Server) handleListSpeakers(ctx context.Context, req *mcp.CallToolRequest, input ListSpeakersInput) (*mcp.CallToolResult, ListSpeakersOutput, error) {
	stats, err := s.historyRepo.Speakers(ctx)
	if err != nil {
		return nil, ListSpeakersOutput{}, fmt.Errorf("list speakers: %w", err)
	}

	out := ListSpeakersOutput{Speakers: make([]SpeakerInfo, 0, len(stats))}
	for _, st := range stats {
		out.Speakers = append(out.Speakers, SpeakerInfo{
			Speaker:    st.Speaker,
			TurnCount:  st.TurnCount,
			HasPrompt:  st.HasPrompt,
			LastActive: st.LastActive.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

// SpeakerInput names a speaker
type SpeakerInput struct {
	Speaker string `json:"speaker" jsonschema:"contact display name or group topic"`
}

// TurnInfo is one history entry
type TurnInfo struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GetHistoryOutput contains the speaker's history
type GetHistoryOutput struct {
	Speaker string     `json:"speaker"`
	Turns   []TurnInfo `json:"turns"`
}

func (s *Server) handleGetHistory(ctx context.Context, req *mcp.CallToolRequest, input SpeakerInput) (*mcp.CallToolResult, GetHistoryOutput, error) {
	if input.Speaker == "" {
		return nil, GetHistoryOutput{}, fmt.Errorf("speaker is required")
	}

	turns, err := s.historyRepo.GetHistory(ctx, input.Speaker)
	if err != nil {
		return nil, GetHistoryOutput{}, fmt.Errorf("get history: %w", err)
	}

	out := GetHistoryOutput{Speaker: input.Speaker, Turns: make([]TurnInfo, 0, len(turns))}
	for _, t := range turns {
		out.Turns = append(out.Turns, TurnInfo{Role: string(t.Role), Content: t.Content})
	}
	return nil, out, nil
}

// SetPromptInput is the input for set_prompt tool
type SetPromptInput struct {
	Speaker string `json:"speaker" jsonschema:"contact display name or group topic"`
	Prompt  string `json:"prompt" jsonschema:"system prompt, empty to restore the default"`
}

// ResultOutput reports a mutation outcome
type ResultOutput struct {
	Success bool `json:"success"`
}

func (s *Server) handleSetPrompt(ctx context.Context, req *mcp.CallToolRequest, input SetPromptInput) (*mcp.CallToolResult, ResultOutput, error) {
	if input.Speaker == "" {
		return nil, ResultOutput{}, fmt.Errorf("speaker is required")
	}
	if err := s.historyRepo.SetPrompt(ctx, input.Speaker, input.Prompt); err != nil {
		return nil, ResultOutput{}, fmt.Errorf("set prompt: %w", err)
	}
	return nil, ResultOutput{Success: true}, nil
}

func (s *Server) handleClearHistory(ctx context.Context, req *mcp.CallToolRequest, input SpeakerInput) (*mcp.CallToolResult, ResultOutput, error) {
	if input.Speaker == "" {
		return nil, ResultOutput{}, fmt.Errorf("speaker is required")
	}
	if err := s.historyRepo.Clear(ctx, input.Speaker); err != nil {
		return nil, ResultOutput{}, fmt.Errorf("clear history: %w", err)
	}
	return nil, ResultOutput{Success: true}, nil
}
