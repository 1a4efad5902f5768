package campus

import (
	"context"
	"time"
)

// Conversation is a titled container for a message sequence owned by one
// identity.
type Conversation struct {
	ID        string
	OwnerID   string
	Title     string
	CreatedAt time.Time
}

// Message is one entry of a conversation. Messages are append-only.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	CreatedAt      time.Time
}

// ConversationStore persists conversations and their messages and serves
// continuous queries over them. CreatedAt values are assigned by the store.
//
// SubscribeConversations delivers every conversation owned by ownerID,
// newest first. SubscribeMessages delivers the messages of one conversation,
// oldest first. Each delivery is the full current result set.
type ConversationStore interface {
	SubscribeConversations(ctx context.Context, ownerID string) (*Subscription[Conversation], error)
	SubscribeMessages(ctx context.Context, conversationID string) (*Subscription[Message], error)
	CreateConversation(ctx context.Context, ownerID, title string) (string, error)
	AppendMessage(ctx context.Context, conversationID string, role Role, content string) (string, error)
	DeleteConversation(ctx context.Context, id string) error
}
