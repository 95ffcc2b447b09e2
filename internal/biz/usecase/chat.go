package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
	"github.com/devricklin/feishu-assistant/internal/biz/repo"
	"github.com/devricklin/feishu-assistant/internal/metrics"
)

// DefaultInferenceTimeout bounds a single completion request
const DefaultInferenceTimeout = 60 * time.Second

// ChatUsecase handles free-form chat with the language model
type ChatUsecase struct {
	historyRepo   repo.HistoryRepo
	inferenceRepo repo.InferenceRepo
	timeout       time.Duration
	apology       string
	locks         *speakerLocks
	log           *zap.Logger
}

// NewChatUsecase creates a new chat usecase
func NewChatUsecase(
	historyRepo repo.HistoryRepo,
	inferenceRepo repo.InferenceRepo,
	timeout time.Duration,
	replies ReplyConfig,
	log *zap.Logger,
) *ChatUsecase {
	if timeout <= 0 {
		timeout = DefaultInferenceTimeout
	}
	apology := replies.Apology
	if apology == "" {
		apology = DefaultReplyConfig.Apology
	}
	return &ChatUsecase{
		historyRepo:   historyRepo,
		inferenceRepo: inferenceRepo,
		timeout:       timeout,
		apology:       apology,
		locks:         newSpeakerLocks(),
		log:           log.Named("chat"),
	}
}

// Reply records the user turn, asks the model and records the answer
// Any failure yields the apology text and no assistant turn.
func (uc *ChatUsecase) Reply(ctx context.Context, speaker, text string) string {
	unlock := uc.locks.lock(speaker)
	defer unlock()

	answer, err := uc.complete(ctx, speaker, text)
	if err != nil {
		metrics.InferenceFailures.WithLabelValues("chat").Inc()
		uc.log.Warn("completion failed", zap.String("speaker", speaker), zap.Error(err))
		return uc.apology
	}

	if err := uc.historyRepo.AppendAssistant(ctx, speaker, answer); err != nil {
		uc.log.Warn("failed to record assistant turn", zap.String("speaker", speaker), zap.Error(err))
	}
	return answer
}

func (uc *ChatUsecase) complete(ctx context.Context, speaker, text string) (string, error) {
	if err := uc.historyRepo.AppendUser(ctx, speaker, text); err != nil {
		return "", fmt.Errorf("append user turn: %w", err)
	}

	turns, err := uc.historyRepo.GetHistory(ctx, speaker)
	if err != nil {
		return "", fmt.Errorf("get history: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	answer, err := uc.inferenceRepo.Complete(ctx, speaker, turns)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInference, err)
	}
	answer = strings.Trim(answer, "\n")
	if answer == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrInference)
	}
	return answer, nil
}

// speakerLocks serializes history updates per speaker
type speakerLocks struct {
	mu    sync.Mutex
	locks map[string]*speakerLock
}

type speakerLock struct {
	mu   sync.Mutex
	refs int
}

func newSpeakerLocks() *speakerLocks {
	return &speakerLocks{locks: make(map[string]*speakerLock)}
}

func (l *speakerLocks) lock(speaker string) func() {
	l.mu.Lock()
	sl, ok := l.locks[speaker]
	if !ok {
		sl = &speakerLock{}
		l.locks[speaker] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, speaker)
		}
		l.mu.Unlock()
	}
}
