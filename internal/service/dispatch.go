package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
	"github.com/devricklin/feishu-assistant/internal/biz/repo"
	"github.com/devricklin/feishu-assistant/internal/biz/usecase"
	"github.com/devricklin/feishu-assistant/internal/metrics"
)

// PingCommand prefix is answered with the pong text before any other check
const PingCommand = "/ping"

// DispatchConfig contains dispatch configuration
type DispatchConfig struct {
	ChatEnabled         bool      // Free-form chat path
	DisableGroupMessage bool      // No chat replies in groups
	AttachmentDir       string    // Where voice notes are saved before transcription
	StartedAt           time.Time // Events received earlier are dropped, zero = keep all
}

// DispatchService routes inbound events to commands, image generation, chat or transcription
type DispatchService struct {
	trigger   *usecase.TriggerUsecase
	command   *usecase.CommandUsecase
	chat      *usecase.ChatUsecase
	segmenter *usecase.Segmenter
	transport repo.TransportRepo
	inference repo.InferenceRepo
	replies   usecase.ReplyConfig
	cfg       DispatchConfig
	log       *zap.Logger
}

// NewDispatchService creates a new dispatch service
func NewDispatchService(
	trigger *usecase.TriggerUsecase,
	command *usecase.CommandUsecase,
	chat *usecase.ChatUsecase,
	segmenter *usecase.Segmenter,
	transport repo.TransportRepo,
	inference repo.InferenceRepo,
	replies usecase.ReplyConfig,
	cfg DispatchConfig,
	log *zap.Logger,
) *DispatchService {
	if cfg.AttachmentDir == "" {
		cfg.AttachmentDir = os.TempDir()
	}

	s := &DispatchService{
		trigger:   trigger,
		command:   command,
		chat:      chat,
		segmenter: segmenter,
		transport: transport,
		inference: inference,
		replies:   replies.WithDefaults(),
		cfg:       cfg,
		log:       log.Named("dispatch"),
	}

	tc := trigger.Config()
	s.log.Info("dispatch configured",
		zap.String("private_keyword", tc.PrivateKeyword),
		zap.String("trigger_rule", tc.Rule),
		zap.String("bot_name", tc.BotName),
		zap.Int("block_words", len(tc.BlockWords)),
		zap.Int("reply_block_words", len(tc.ReplyBlockWords)),
		zap.Bool("chat_enabled", cfg.ChatEnabled),
		zap.Bool("disable_group_message", cfg.DisableGroupMessage))
	return s
}

// HandleEvent processes one inbound event
// It never fails: errors are logged and swallowed, panics are recovered.
func (s *DispatchService) HandleEvent(ctx context.Context, ev *domain.InboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic while handling event",
				zap.String("event_id", ev.ID), zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	metrics.EventsReceived.WithLabelValues(ev.Kind.String()).Inc()

	if !s.cfg.StartedAt.IsZero() && ev.IsBefore(s.cfg.StartedAt) {
		s.filtered(ev, "stale")
		return
	}

	dest := ev.Talker()

	if ev.Kind == domain.KindText && strings.HasPrefix(strings.TrimSpace(ev.Text), PingCommand) {
		s.route("ping")
		s.say(ctx, dest, s.replies.Pong)
		return
	}

	private := ev.IsPrivate()
	if !private && !ev.MentionsBot && s.transport.MentionsBot(ev) {
		mentioned := *ev
		mentioned.MentionsBot = true
		ev = &mentioned
	}

	if s.trigger.IsNonsense(ev, s.transport.IsSelf(ev.Sender)) {
		s.filtered(ev, "nonsense")
		return
	}
	if !s.trigger.ShouldHandle(ev, private) {
		s.filtered(ev, "trigger")
		return
	}

	speaker, dest := s.speakerOf(ctx, ev)
	log := s.log.With(zap.String("event_id", ev.ID), zap.String("speaker", speaker))

	if ev.Kind == domain.KindAudio {
		s.route("transcribe")
		s.handleAudio(ctx, ev, dest, log)
		return
	}

	body := ev.Text
	if !private {
		body = s.trigger.StripMention(body)
	}
	body = strings.TrimSpace(body)

	switch {
	case strings.HasPrefix(body, usecase.CommandPrefix):
		s.route("command")
		line := strings.TrimPrefix(body, usecase.CommandPrefix)
		if _, err := s.command.Run(ctx, dest, speaker, line); err != nil {
			log.Warn("command failed", zap.Error(err))
		}

	case strings.HasPrefix(body, usecase.ImagePrefix):
		s.route("image")
		prompt := strings.TrimPrefix(body, usecase.ImagePrefix)
		if err := s.command.Image(ctx, dest, speaker, prompt); err != nil {
			log.Warn("image dispatch failed", zap.Error(err))
			if errors.Is(err, domain.ErrImageGeneration) {
				s.say(ctx, dest, s.replies.ImageFailure)
			}
		}

	default:
		s.handleChat(ctx, ev, dest, speaker, private, log)
	}
}

func (s *DispatchService) handleChat(ctx context.Context, ev *domain.InboundEvent, dest domain.Talker, speaker string, private bool, log *zap.Logger) {
	if !s.cfg.ChatEnabled {
		s.filtered(ev, "chat_disabled")
		return
	}
	if !private && s.cfg.DisableGroupMessage {
		s.filtered(ev, "group_disabled")
		return
	}

	question := s.trigger.Clean(ev.Text, private)
	if question == "" {
		s.filtered(ev, "empty")
		return
	}

	s.route("chat")
	start := time.Now()
	answer := s.chat.Reply(ctx, speaker, question)
	log.Info("chat answered", zap.Duration("took", time.Since(start)))

	if !private {
		answer = s.replies.FormatGroupReply(ev.Sender.Name, question, answer)
	}
	s.say(ctx, dest, answer)
}

func (s *DispatchService) handleAudio(ctx context.Context, ev *domain.InboundEvent, dest domain.Talker, log *zap.Logger) {
	text, err := s.transcribe(ctx, ev)
	if err != nil {
		metrics.InferenceFailures.WithLabelValues("transcription").Inc()
		log.Warn("transcription failed", zap.Error(err))
		s.say(ctx, dest, s.replies.TranscriptionFailure)
		return
	}
	s.say(ctx, dest, text)
}

func (s *DispatchService) transcribe(ctx context.Context, ev *domain.InboundEvent) (string, error) {
	path, err := s.transport.SaveAttachment(ctx, ev, s.cfg.AttachmentDir)
	if err != nil {
		return "", fmt.Errorf("%w: save attachment: %v", domain.ErrTranscription, err)
	}
	defer os.Remove(path)

	text, err := s.inference.Transcribe(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTranscription, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcription", domain.ErrTranscription)
	}
	return text, nil
}

// speakerOf returns the history key and the reply destination
// Groups are keyed by topic, contacts by display name.
func (s *DispatchService) speakerOf(ctx context.Context, ev *domain.InboundEvent) (string, domain.Talker) {
	if ev.Room == nil {
		return ev.Sender.Name, domain.Individual(ev.Sender.ID, ev.Sender.Name)
	}

	topic, err := s.transport.RoomTopic(ctx, *ev.Room)
	if err != nil || topic == "" {
		s.log.Debug("room topic unavailable", zap.String("room", ev.Room.ID), zap.Error(err))
		topic = ev.Room.ID
	}
	return topic, domain.Group(ev.Room.ID, topic)
}

func (s *DispatchService) say(ctx context.Context, dest domain.Talker, text string) {
	if err := s.segmenter.Say(ctx, dest, text); err != nil {
		s.log.Warn("failed to send reply", zap.Stringer("dest", dest), zap.Error(err))
	}
}

func (s *DispatchService) filtered(ev *domain.InboundEvent, reason string) {
	metrics.EventsFiltered.WithLabelValues(reason).Inc()
	s.log.Debug("event filtered",
		zap.String("event_id", ev.ID), zap.String("reason", reason), zap.Stringer("kind", ev.Kind))
}

func (s *DispatchService) route(name string) {
	metrics.Dispatched.WithLabelValues(name).Inc()
}
