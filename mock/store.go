package mock

import (
	"context"

	"github.com/fwojciec/campus"
)

// ConversationStore is a test double for campus.ConversationStore.
// Set the function fields for the methods you need.
type ConversationStore struct {
	SubscribeConversationsFn func(ctx context.Context, ownerID string) (*campus.Subscription[campus.Conversation], error)
	SubscribeMessagesFn      func(ctx context.Context, conversationID string) (*campus.Subscription[campus.Message], error)
	CreateConversationFn     func(ctx context.Context, ownerID, title string) (string, error)
	AppendMessageFn          func(ctx context.Context, conversationID string, role campus.Role, content string) (string, error)
	DeleteConversationFn     func(ctx context.Context, id string) error
}

// SubscribeConversations delegates to SubscribeConversationsFn.
func (s *ConversationStore) SubscribeConversations(ctx context.Context, ownerID string) (*campus.Subscription[campus.Conversation], error) {
	return s.SubscribeConversationsFn(ctx, ownerID)
}

// SubscribeMessages delegates to SubscribeMessagesFn.
func (s *ConversationStore) SubscribeMessages(ctx context.Context, conversationID string) (*campus.Subscription[campus.Message], error) {
	return s.SubscribeMessagesFn(ctx, conversationID)
}

// CreateConversation delegates to CreateConversationFn.
func (s *ConversationStore) CreateConversation(ctx context.Context, ownerID, title string) (string, error) {
	return s.CreateConversationFn(ctx, ownerID, title)
}

// AppendMessage delegates to AppendMessageFn.
func (s *ConversationStore) AppendMessage(ctx context.Context, conversationID string, role campus.Role, content string) (string, error) {
	return s.AppendMessageFn(ctx, conversationID, role, content)
}

// DeleteConversation delegates to DeleteConversationFn.
func (s *ConversationStore) DeleteConversation(ctx context.Context, id string) error {
	return s.DeleteConversationFn(ctx, id)
}
