package repo

import (
	"context"
	"time"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
)

// SpeakerStat summarizes stored history of one speaker
type SpeakerStat struct {
	Speaker    string
	TurnCount  int
	HasPrompt  bool
	LastActive time.Time
}

// HistoryRepo is the conversation history interface
// Keyed by speaker identity (group topic or contact name)
type HistoryRepo interface {
	// AppendUser appends a user turn
	AppendUser(ctx context.Context, speaker, text string) error

	// AppendAssistant appends an assistant turn
	AppendAssistant(ctx context.Context, speaker, text string) error

	// GetHistory returns the system prompt followed by the most recent turns
	GetHistory(ctx context.Context, speaker string) ([]domain.Turn, error)

	// SetPrompt stores a per-speaker system prompt override, empty clears it
	SetPrompt(ctx context.Context, speaker, prompt string) error

	// Clear removes all stored turns of the speaker
	Clear(ctx context.Context, speaker string) error

	// CleanupStale removes turns created before the given time
	CleanupStale(ctx context.Context, before time.Time) (int64, error)

	// Speakers lists speakers with stored state
	Speakers(ctx context.Context) ([]SpeakerStat, error)

	Close() error
}
