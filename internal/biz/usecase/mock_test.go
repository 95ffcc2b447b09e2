package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
	"github.com/devricklin/feishu-assistant/internal/biz/repo"
)

// Mock implementations

type sentMessage struct {
	Dest  domain.Talker
	Text  string
	Image string
}

type mockTransport struct {
	mu      sync.Mutex
	sent    []sentMessage
	failAt  int // Fail the n-th send (1-based), 0 = never
	sends   int
	selfID  string
	topics  map[string]string
	saveErr error
}

func (m *mockTransport) Send(ctx context.Context, dest domain.Talker, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends++
	if m.failAt > 0 && m.sends == m.failAt {
		return errors.New("send failed")
	}
	m.sent = append(m.sent, sentMessage{Dest: dest, Text: text})
	return nil
}

func (m *mockTransport) SendImage(ctx context.Context, dest domain.Talker, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{Dest: dest, Image: url})
	return nil
}

func (m *mockTransport) SaveAttachment(ctx context.Context, ev *domain.InboundEvent, dir string) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	return dir + "/" + ev.ResourceKey + ".ogg", nil
}

func (m *mockTransport) IsSelf(sender domain.Identity) bool {
	return m.selfID != "" && sender.ID == m.selfID
}

func (m *mockTransport) MentionsBot(ev *domain.InboundEvent) bool {
	return ev.MentionsBot
}

func (m *mockTransport) RoomTopic(ctx context.Context, room domain.Identity) (string, error) {
	if topic, ok := m.topics[room.ID]; ok {
		return topic, nil
	}
	return room.Name, nil
}

func (m *mockTransport) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []string
	for _, s := range m.sent {
		if s.Text != "" {
			result = append(result, s.Text)
		}
	}
	return result
}

type mockHistoryRepo struct {
	mu      sync.Mutex
	turns   map[string][]domain.Turn
	prompts map[string]string
}

func newMockHistoryRepo() *mockHistoryRepo {
	return &mockHistoryRepo{
		turns:   make(map[string][]domain.Turn),
		prompts: make(map[string]string),
	}
}

func (m *mockHistoryRepo) AppendUser(ctx context.Context, speaker, text string) error {
	return m.append(speaker, domain.RoleUser, text)
}

func (m *mockHistoryRepo) AppendAssistant(ctx context.Context, speaker, text string) error {
	return m.append(speaker, domain.RoleAssistant, text)
}

func (m *mockHistoryRepo) append(speaker string, role domain.Role, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[speaker] = append(m.turns[speaker], domain.Turn{Role: role, Content: text, CreatedAt: time.Now()})
	return nil
}

func (m *mockHistoryRepo) GetHistory(ctx context.Context, speaker string) ([]domain.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prompt := m.prompts[speaker]
	if prompt == "" {
		prompt = "default prompt"
	}
	result := []domain.Turn{{Role: domain.RoleSystem, Content: prompt}}
	return append(result, m.turns[speaker]...), nil
}

func (m *mockHistoryRepo) SetPrompt(ctx context.Context, speaker, prompt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prompt == "" {
		delete(m.prompts, speaker)
		return nil
	}
	m.prompts[speaker] = prompt
	return nil
}

func (m *mockHistoryRepo) Clear(ctx context.Context, speaker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.turns, speaker)
	return nil
}

func (m *mockHistoryRepo) CleanupStale(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (m *mockHistoryRepo) Speakers(ctx context.Context) ([]repo.SpeakerStat, error) {
	return nil, nil
}

func (m *mockHistoryRepo) Close() error {
	return nil
}

func (m *mockHistoryRepo) count(speaker string, role domain.Role) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, turn := range m.turns[speaker] {
		if turn.Role == role {
			n++
		}
	}
	return n
}

type mockInferenceRepo struct {
	answer    string
	err       error
	imageURL  string
	imageErr  error
	lastTurns []domain.Turn
}

func (m *mockInferenceRepo) Complete(ctx context.Context, speaker string, turns []domain.Turn) (string, error) {
	m.lastTurns = turns
	return m.answer, m.err
}

func (m *mockInferenceRepo) GenerateImage(ctx context.Context, speaker, prompt string) (string, error) {
	return m.imageURL, m.imageErr
}

func (m *mockInferenceRepo) Transcribe(ctx context.Context, path string) (string, error) {
	return "", nil
}
