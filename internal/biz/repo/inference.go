package repo

import (
	"context"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
)

// InferenceRepo is the language/image/speech model interface
type InferenceRepo interface {
	// Complete requests a chat completion for the speaker's accumulated turns
	Complete(ctx context.Context, speaker string, turns []domain.Turn) (string, error)

	// GenerateImage generates an image and returns its URL
	GenerateImage(ctx context.Context, speaker, prompt string) (string, error)

	// Transcribe converts the audio file at path to text
	Transcribe(ctx context.Context, path string) (string, error)
}
