package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
	"github.com/devricklin/feishu-assistant/internal/biz/repo"
	"github.com/devricklin/feishu-assistant/internal/metrics"
)

// Command prefixes recognized at the start of a message
const (
	CommandPrefix = "/cmd "
	ImagePrefix   = "/img"
)

// Command is a named action bound to the invoking speaker
type Command struct {
	Name        string
	Description string
	Exec        func(ctx context.Context, dest domain.Talker, speaker, args string) error
}

// CommandUsecase routes slash-commands
type CommandUsecase struct {
	historyRepo   repo.HistoryRepo
	inferenceRepo repo.InferenceRepo
	transport     repo.TransportRepo
	segmenter     *Segmenter
	replies       ReplyConfig
	commands      []Command
	log           *zap.Logger
}

// NewCommandUsecase creates a new command usecase
func NewCommandUsecase(
	historyRepo repo.HistoryRepo,
	inferenceRepo repo.InferenceRepo,
	transport repo.TransportRepo,
	segmenter *Segmenter,
	replies ReplyConfig,
	log *zap.Logger,
) *CommandUsecase {
	uc := &CommandUsecase{
		historyRepo:   historyRepo,
		inferenceRepo: inferenceRepo,
		transport:     transport,
		segmenter:     segmenter,
		replies:       replies,
		log:           log.Named("command"),
	}
	if uc.replies.HelpText == "" {
		uc.replies.HelpText = DefaultReplyConfig.HelpText
	}

	uc.commands = []Command{
		{
			Name:        "help",
			Description: "显示帮助信息",
			Exec: func(ctx context.Context, dest domain.Talker, _, _ string) error {
				return uc.segmenter.Say(ctx, dest, uc.replies.HelpText)
			},
		},
		{
			Name:        "prompt",
			Description: "设置当前会话的prompt",
			Exec: func(ctx context.Context, _ domain.Talker, speaker, args string) error {
				return uc.historyRepo.SetPrompt(ctx, speaker, args)
			},
		},
		{
			Name:        "clear",
			Description: "清除自上次启动以来的所有会话",
			Exec: func(ctx context.Context, _ domain.Talker, speaker, _ string) error {
				return uc.historyRepo.Clear(ctx, speaker)
			},
		},
	}
	return uc
}

// Commands returns the static command table
func (uc *CommandUsecase) Commands() []Command {
	return uc.commands
}

// ParseCommand splits a command line into name and single-spaced arguments
func ParseCommand(line string) (name, args string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// Run executes the command line (prefix already stripped) for the speaker
// Unknown command names are ignored and report false.
func (uc *CommandUsecase) Run(ctx context.Context, dest domain.Talker, speaker, line string) (bool, error) {
	name, args := ParseCommand(line)
	for _, cmd := range uc.commands {
		if cmd.Name != name {
			continue
		}
		uc.log.Info("run command", zap.String("name", name), zap.String("speaker", speaker))
		if err := cmd.Exec(ctx, dest, speaker, args); err != nil {
			return true, fmt.Errorf("command %s: %w", name, err)
		}
		return true, nil
	}
	uc.log.Debug("unknown command ignored", zap.String("name", name))
	return false, nil
}

// Image generates an image for the prompt and sends it to dest
func (uc *CommandUsecase) Image(ctx context.Context, dest domain.Talker, speaker, prompt string) error {
	prompt = strings.TrimSpace(prompt)

	url, err := uc.inferenceRepo.GenerateImage(ctx, speaker, prompt)
	if err != nil {
		metrics.InferenceFailures.WithLabelValues("image").Inc()
		return fmt.Errorf("%w: %v", domain.ErrImageGeneration, err)
	}
	if url == "" {
		metrics.InferenceFailures.WithLabelValues("image").Inc()
		return fmt.Errorf("%w: empty url", domain.ErrImageGeneration)
	}

	if err := uc.transport.SendImage(ctx, dest, url); err != nil {
		metrics.SendFailures.Inc()
		return fmt.Errorf("%w: send image: %v", domain.ErrTransport, err)
	}
	return nil
}
