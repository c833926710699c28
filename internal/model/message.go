// Package model defines the chat desk data structures and the views derived from them.
package model

// Role represents the author of a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBot
}

// Message is a single entry of a chat. Messages are never edited once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a message authored by the user.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// BotMessage builds a message authored by the bot.
func BotMessage(content string) Message {
	return Message{Role: RoleBot, Content: content}
}
