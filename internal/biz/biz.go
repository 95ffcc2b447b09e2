package biz

import (
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
	"github.com/devricklin/feishu-assistant/internal/biz/repo"
	"github.com/devricklin/feishu-assistant/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Trigger   *usecase.TriggerUsecase
	Segmenter *usecase.Segmenter
	Chat      *usecase.ChatUsecase
	Command   *usecase.CommandUsecase
}

// Options configures the usecases
type Options struct {
	Trigger          domain.TriggerConfig
	Segment          usecase.SegmentConfig
	InferenceTimeout time.Duration
	Replies          usecase.ReplyConfig
}

// NewUsecases creates all usecases over the given repositories
func NewUsecases(
	transport repo.TransportRepo,
	inference repo.InferenceRepo,
	history repo.HistoryRepo,
	opts Options,
	log *zap.Logger,
) (*Usecases, error) {
	trigger, err := usecase.NewTriggerUsecase(opts.Trigger)
	if err != nil {
		return nil, err
	}

	replies := opts.Replies.WithDefaults()
	segmenter := usecase.NewSegmenter(transport, opts.Segment, log)
	return &Usecases{
		Trigger:   trigger,
		Segmenter: segmenter,
		Chat:      usecase.NewChatUsecase(history, inference, opts.InferenceTimeout, replies, log),
		Command:   usecase.NewCommandUsecase(history, inference, transport, segmenter, replies, log),
	}, nil
}
