package data

import (
	"context"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
	"github.com/devricklin/feishu-assistant/internal/biz/repo"
	"github.com/devricklin/feishu-assistant/internal/infra/openai"
)

// openaiRepo implements the Inference repository
type openaiRepo struct {
	client *openai.Client
}

// NewOpenAIRepo creates an Inference repository
func NewOpenAIRepo(client *openai.Client) repo.InferenceRepo {
	return &openaiRepo{client: client}
}

// Complete requests a chat completion for the speaker's accumulated turns
func (r *openaiRepo) Complete(ctx context.Context, speaker string, turns []domain.Turn) (string, error) {
	messages := make([]openai.Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, openai.Message{Role: string(t.Role), Content: t.Content})
	}
	return r.client.Chat(ctx, speaker, messages)
}

// GenerateImage generates an image and returns its URL
func (r *openaiRepo) GenerateImage(ctx context.Context, speaker, prompt string) (string, error) {
	return r.client.CreateImage(ctx, speaker, prompt)
}

// Transcribe converts the audio file at path to text
func (r *openaiRepo) Transcribe(ctx context.Context, path string) (string, error) {
	return r.client.Transcribe(ctx, path)
}
