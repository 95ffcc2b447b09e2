package domain

import "fmt"

// Identity is an opaque id plus display name (value object)
type Identity struct {
	ID   string
	Name string
}

// TalkerKind tags a Talker
type TalkerKind int

const (
	TalkerIndividual TalkerKind = iota
	TalkerGroup
)

// Talker is the destination of a reply: an individual contact or a group room
type Talker struct {
	Kind TalkerKind
	ID   string
	Name string // Display name, or topic for groups
}

// Individual builds a Talker for a contact
func Individual(id, name string) Talker {
	return Talker{Kind: TalkerIndividual, ID: id, Name: name}
}

// Group builds a Talker for a room
func Group(id, topic string) Talker {
	return Talker{Kind: TalkerGroup, ID: id, Name: topic}
}

// IsGroup checks if this talker is a group room
func (t Talker) IsGroup() bool {
	return t.Kind == TalkerGroup
}

func (t Talker) String() string {
	if t.IsGroup() {
		return fmt.Sprintf("group:%s(%s)", t.Name, t.ID)
	}
	return fmt.Sprintf("contact:%s(%s)", t.Name, t.ID)
}
