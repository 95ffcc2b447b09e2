package repo

import (
	"context"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
)

// TransportRepo is the chat client interface
// Responsible for delivering replies and resolving identities
type TransportRepo interface {
	// Send sends a text message to a contact or room
	Send(ctx context.Context, dest domain.Talker, text string) error

	// SendImage downloads the image at url and sends it as an image message
	SendImage(ctx context.Context, dest domain.Talker, url string) error

	// SaveAttachment persists the event's attachment under dir and returns the file path
	SaveAttachment(ctx context.Context, ev *domain.InboundEvent, dir string) (string, error)

	// IsSelf checks if the sender is the bot account
	IsSelf(sender domain.Identity) bool

	// MentionsBot checks if the event mentions the bot
	MentionsBot(ev *domain.InboundEvent) bool

	// RoomTopic resolves the topic (display name) of a room
	RoomTopic(ctx context.Context, room domain.Identity) (string, error)
}
