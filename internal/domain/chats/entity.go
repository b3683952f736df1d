package chats

import (
	"time"

	"github.com/bryanwahyu/aidentify/internal/domain/ai"
	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

type ChatID string

// Role enum. The assistant's wire value is the product name.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "aidentify"
)

// Message is one entry of a chat thread. Its ID is independent of the chat's.
type Message struct {
	ID         string     `json:"id" bson:"id"`
	Role       Role       `json:"role" bson:"role"`
	Type       media.Kind `json:"type" bson:"type"`
	Content    string     `json:"content" bson:"content"`
	Label      ai.Label   `json:"label,omitempty" bson:"label,omitempty"`
	Confidence *float64   `json:"confidence,omitempty" bson:"confidence,omitempty"`
	Reason     string     `json:"reason,omitempty" bson:"reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
}

// Aggregate Root: Chat. The id is serialized as "_id", the key the web
// client reads.
type Chat struct {
	ID        ChatID    `json:"_id"`
	UserEmail string    `json:"user_email"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// Summary is the history listing view of a chat.
type Summary struct {
	ID        ChatID    `json:"_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}
