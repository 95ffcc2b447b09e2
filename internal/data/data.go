package data

import (
	"go.uber.org/zap"

	"github.com/devricklin/feishu-assistant/internal/biz/repo"
	"github.com/devricklin/feishu-assistant/internal/infra/openai"
)

// Repositories contains all repositories
type Repositories struct {
	Transport repo.TransportRepo
	Inference repo.InferenceRepo
	History   repo.HistoryRepo
}

// NewRepositories creates all repositories
func NewRepositories(
	feishuClient FeishuClient,
	openaiClient *openai.Client,
	historyCfg HistoryConfig,
	log *zap.Logger,
) (*Repositories, error) {
	historyRepo, err := NewHistoryRepo(historyCfg)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Transport: NewFeishuRepo(feishuClient, log),
		Inference: NewOpenAIRepo(openaiClient),
		History:   historyRepo,
	}, nil
}

// Close releases the repositories' resources
func (r *Repositories) Close() error {
	return r.History.Close()
}
