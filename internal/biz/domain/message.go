package domain

import "time"

// MessageKind classifies an inbound message
type MessageKind int

const (
	KindOther MessageKind = iota
	KindText
	KindAudio
	KindImage
	KindContact
	KindLocation
	KindRecalled
)

func (k MessageKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindAudio:
		return "audio"
	case KindImage:
		return "image"
	case KindContact:
		return "contact"
	case KindLocation:
		return "location"
	case KindRecalled:
		return "recalled"
	default:
		return "other"
	}
}

// InboundEvent represents one received message
type InboundEvent struct {
	ID          string
	Sender      Identity
	Room        *Identity // nil for private conversations
	Recipient   *Identity // Addressed recipient of a group mention
	Text        string
	Kind        MessageKind
	MentionsBot bool   // Mention signal reported by the transport
	ResourceKey string // Attachment handle (audio file key etc.)
	ReceivedAt  time.Time
}

// IsPrivate checks if the event belongs to a one-to-one conversation
func (e *InboundEvent) IsPrivate() bool {
	return e.Room == nil
}

// Talker returns the destination replies for this event are sent to
func (e *InboundEvent) Talker() Talker {
	if e.Room != nil {
		return Group(e.Room.ID, e.Room.Name)
	}
	return Individual(e.Sender.ID, e.Sender.Name)
}

// IsBefore checks if the event was received before the specified time
func (e *InboundEvent) IsBefore(t time.Time) bool {
	return e.ReceivedAt.Before(t)
}
