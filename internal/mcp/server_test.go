package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
	"github.com/devricklin/feishu-assistant/internal/biz/repo"
)

type mockHistoryRepo struct {
	turns   map[string][]domain.Turn
	prompts map[string]string
}

func newMockHistoryRepo() *mockHistoryRepo {
	return &mockHistoryRepo{turns: map[string][]domain.Turn{}, prompts: map[string]string{}}
}

func (m *mockHistoryRepo) AppendUser(ctx context.Context, speaker, text string) error {
	m.turns[speaker] = append(m.turns[speaker], domain.Turn{Role: domain.RoleUser, Content: text})
	return nil
}

func (m *mockHistoryRepo) AppendAssistant(ctx context.Context, speaker, text string) error {
	m.turns[speaker] = append(m.turns[speaker], domain.Turn{Role: domain.RoleAssistant, Content: text})
	return nil
}

func (m *mockHistoryRepo) GetHistory(ctx context.Context, speaker string) ([]domain.Turn, error) {
	return append([]domain.Turn{{Role: domain.RoleSystem, Content: m.prompts[speaker]}}, m.turns[speaker]...), nil
}

func (m *mockHistoryRepo) SetPrompt(ctx context.Context, speaker, prompt string) error {
	m.prompts[speaker] = prompt
	return nil
}

func (m *mockHistoryRepo) Clear(ctx context.Context, speaker string) error {
	delete(m.turns, speaker)
	return nil
}

func (m *mockHistoryRepo) CleanupStale(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (m *mockHistoryRepo) Speakers(ctx context.Context) ([]repo.SpeakerStat, error) {
	var stats []repo.SpeakerStat
	for speaker, turns := range m.turns {
		stats = append(stats, repo.SpeakerStat{Speaker: speaker, TurnCount: len(turns)})
	}
	return stats, nil
}

func (m *mockHistoryRepo) Close() error { return nil }

func TestHandleGetHistory(t *testing.T) {
	history := newMockHistoryRepo()
	history.AppendUser(context.Background(), "Alice", "hi")
	history.SetPrompt(context.Background(), "Alice", "poet")
	s := NewServer(history, "test")

	_, out, err := s.handleGetHistory(context.Background(), nil, SpeakerInput{Speaker: "Alice"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(out.Turns) != 2 || out.Turns[0].Content != "poet" || out.Turns[1].Content != "hi" {
		t.Errorf("Unexpected turns: %+v", out.Turns)
	}
}

func TestHandleGetHistory_MissingSpeaker(t *testing.T) {
	s := NewServer(newMockHistoryRepo(), "test")

	if _, _, err := s.handleGetHistory(context.Background(), nil, SpeakerInput{}); err == nil {
		t.Error("Expected error for missing speaker")
	}
}

func TestHandleSetPromptAndClear(t *testing.T) {
	history := newMockHistoryRepo()
	history.AppendUser(context.Background(), "Alice", "hi")
	history.AppendUser(context.Background(), "Bob", "yo")
	s := NewServer(history, "test")

	if _, out, err := s.handleSetPrompt(context.Background(), nil, SetPromptInput{Speaker: "Alice", Prompt: "poet"}); err != nil || !out.Success {
		t.Fatalf("set_prompt failed: %v", err)
	}
	if history.prompts["Alice"] != "poet" {
		t.Errorf("Expected prompt set, got %q", history.prompts["Alice"])
	}

	if _, out, err := s.handleClearHistory(context.Background(), nil, SpeakerInput{Speaker: "Alice"}); err != nil || !out.Success {
		t.Fatalf("clear_history failed: %v", err)
	}
	if _, ok := history.turns["Alice"]; ok {
		t.Error("Expected Alice's turns removed")
	}
	if len(history.turns["Bob"]) != 1 {
		t.Error("Expected Bob's turns untouched")
	}
}

func TestHandleListSpeakers(t *testing.T) {
	history := newMockHistoryRepo()
	history.AppendUser(context.Background(), "Alice", "hi")
	s := NewServer(history, "test")

	_, out, err := s.handleListSpeakers(context.Background(), nil, ListSpeakersInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(out.Speakers) != 1 || out.Speakers[0].Speaker != "Alice" || out.Speakers[0].TurnCount != 1 {
		t.Errorf("Unexpected speakers: %+v", out.Speakers)
	}
}

func TestServer_ListToolsOverInMemoryTransport(t *testing.T) {
	ctx := context.Background()
	s := NewServer(newMockHistoryRepo(), "test")

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("Server connect failed: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Client connect failed: %v", err)
	}
	defer session.Close()

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	names := map[string]bool{}
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"list_speakers", "get_history", "set_prompt", "clear_history"} {
		if !names[want] {
			t.Errorf("Expected tool %s to be registered", want)
		}
	}
}
