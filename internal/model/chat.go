package model

import (
	"strings"
	"time"
)

const (
	// DefaultChatName is the placeholder name of a chat that has not been synced yet.
	DefaultChatName = "New Chat"

	// UnnamedChatName is used when a chat is renamed without any user message.
	UnnamedChatName = "Unnamed Chat ..."

	// TimestampLayout is fixed-width so that string order equals time order.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

	nameWordLimit = 4
)

// Chat is a conversation, either standalone or owned by a project.
type Chat struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Timestamp string    `json:"timestamp"`
	Messages  []Message `json:"messages"`
}

// NewChat creates an empty chat stamped with now.
func NewChat(name string, now time.Time) Chat {
	if name == "" {
		name = DefaultChatName
	}
	return Chat{
		ID:        now.UnixMilli(),
		Name:      name,
		Timestamp: FormatTimestamp(now),
		Messages:  []Message{},
	}
}

// FormatTimestamp renders t in the stored timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// HasDefaultName reports whether the chat still carries the placeholder name.
func (c *Chat) HasDefaultName() bool {
	return c.Name == DefaultChatName
}

// DeriveName builds a chat name from the first user message: its first four
// words followed by an ellipsis marker.
func DeriveName(messages []Message) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		words := strings.Fields(m.Content)
		if len(words) == 0 {
			break
		}
		if len(words) > nameWordLimit {
			words = words[:nameWordLimit]
		}
		return strings.Join(words, " ") + " ..."
	}
	return UnnamedChatName
}

// ReplaceMessages overwrites the message list and applies the one-time rename.
// It returns true when the chat was renamed.
func (c *Chat) ReplaceMessages(messages []Message) bool {
	c.Messages = append([]Message(nil), messages...)
	if !c.HasDefaultName() {
		return false
	}
	c.Name = DeriveName(c.Messages)
	return true
}

// Clone returns a deep copy of the chat.
func (c Chat) Clone() Chat {
	c.Messages = append([]Message{}, c.Messages...)
	return c
}

// ChatIndex returns the position of the chat with id in chats, or -1.
func ChatIndex(chats []Chat, id int64) int {
	for i := range chats {
		if chats[i].ID == id {
			return i
		}
	}
	return -1
}

// UniqueID returns id, bumped until no chat in chats carries it.
func UniqueID(chats []Chat, id int64) int64 {
	for ChatIndex(chats, id) >= 0 {
		id++
	}
	return id
}
