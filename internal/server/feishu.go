package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
	"github.com/devricklin/feishu-assistant/internal/infra/feishu"
	"github.com/devricklin/feishu-assistant/internal/metrics"
)

// dedupWindow is how long a message id is remembered; Feishu re-delivers unacked events
const dedupWindow = 5 * time.Minute

// EventHandler consumes inbound events
type EventHandler interface {
	HandleEvent(ctx context.Context, ev *domain.InboundEvent)
}

// FeishuClient is the subset of the Feishu client the server uses
type FeishuClient interface {
	OnMessage(handler feishu.MessageHandler)
	Start(ctx context.Context) error
	Stop()
	UserName(ctx context.Context, openID string) (string, error)
	BotOpenID() string
	BotName() string
}

var _ FeishuClient = (*feishu.Client)(nil)

// FeishuServer turns Feishu messages into inbound events
type FeishuServer struct {
	client  FeishuClient
	handler EventHandler
	log     *zap.Logger
	ctx     context.Context

	// Message deduplication cache
	seenMsgsMu sync.Mutex
	seenMsgs   map[string]time.Time // msgID -> timestamp
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(client FeishuClient, handler EventHandler, log *zap.Logger) *FeishuServer {
	return &FeishuServer{
		client:   client,
		handler:  handler,
		log:      log.Named("server"),
		ctx:      context.Background(),
		seenMsgs: make(map[string]time.Time),
	}
}

// Start connects to Feishu and blocks until ctx is done
func (s *FeishuServer) Start(ctx context.Context) error {
	s.ctx = ctx
	s.client.OnMessage(s.handleMessage)
	return s.client.Start(ctx)
}

// Stop stops the server
func (s *FeishuServer) Stop() {
	s.client.Stop()
}

// handleMessage handles Feishu messages
// The client invokes it on its own goroutine per message.
func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	if !s.markMessageSeen(msg.MsgID) {
		s.log.Debug("duplicate message ignored", zap.String("msg_id", msg.MsgID))
		metrics.EventsFiltered.WithLabelValues("duplicate").Inc()
		return
	}

	// Other bots never get a reply
	if msg.SenderType == "app" && msg.SenderID != s.client.BotOpenID() {
		metrics.EventsFiltered.WithLabelValues("app_sender").Inc()
		return
	}

	ev := s.toEvent(s.ctx, msg)
	s.handler.HandleEvent(s.ctx, ev)
}

// toEvent converts a Feishu message into an inbound event
func (s *FeishuServer) toEvent(ctx context.Context, msg *feishu.Message) *domain.InboundEvent {
	ev := &domain.InboundEvent{
		ID:          msg.MsgID,
		Sender:      domain.Identity{ID: msg.SenderID},
		Text:        msg.Content,
		Kind:        kindOf(msg),
		MentionsBot: msg.MentionsBot,
		ResourceKey: msg.ResourceKey,
		ReceivedAt:  time.Now(),
	}
	if msg.CreateTime > 0 {
		ev.ReceivedAt = time.UnixMilli(msg.CreateTime)
	}
	if msg.Recalled {
		ev.Text = "recalled"
	}

	if msg.SenderID != "" {
		name, err := s.client.UserName(ctx, msg.SenderID)
		if err != nil || name == "" {
			s.log.Debug("sender name unavailable", zap.String("open_id", msg.SenderID), zap.Error(err))
			name = msg.SenderID
		}
		ev.Sender.Name = name
	}

	if msg.ChatType == feishu.ChatTypeGroup {
		ev.Room = &domain.Identity{ID: msg.ChatID}
		if msg.MentionsBot {
			ev.Recipient = &domain.Identity{ID: s.client.BotOpenID(), Name: s.client.BotName()}
		}
	}
	return ev
}

// kindOf maps a Feishu message type to a message kind
func kindOf(msg *feishu.Message) domain.MessageKind {
	if msg.Recalled {
		return domain.KindRecalled
	}
	switch msg.MsgType {
	case "text", "post":
		return domain.KindText
	case "audio":
		return domain.KindAudio
	case "image":
		return domain.KindImage
	case "location":
		return domain.KindLocation
	case "share_user", "share_chat":
		return domain.KindContact
	default:
		return domain.KindOther
	}
}

// markMessageSeen records a message id, false if it was already seen
func (s *FeishuServer) markMessageSeen(msgID string) bool {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()

	now := time.Now()
	// Drop expired records while holding the lock
	cutoff := now.Add(-dedupWindow)
	for id, ts := range s.seenMsgs {
		if ts.Before(cutoff) {
			delete(s.seenMsgs, id)
		}
	}

	if _, exists := s.seenMsgs[msgID]; exists {
		return false
	}
	s.seenMsgs[msgID] = now
	return true
}
