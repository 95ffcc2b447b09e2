package domain

import "time"

// Role of a conversation turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one stored conversation message
type Turn struct {
	Role      Role
	Content   string
	CreatedAt time.Time
}
