package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/fwojciec/campus"
	"github.com/fwojciec/campus/watermill"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var _ campus.ConversationStore = (*ConversationStore)(nil)

// Notification topics. A message on a topic means the result of the
// matching query may have changed.
const (
	conversationsTopic = "campus.conversations."
	messagesTopic      = "campus.messages."
)

// ConversationStore is a campus.ConversationStore on a DB. Writes publish a
// change notification; subscriptions re-run their query on every
// notification and deliver the full result.
type ConversationStore struct {
	db     *DB
	pub    message.Publisher
	sub    message.Subscriber
	logger zerolog.Logger
}

// StoreOption configures a ConversationStore.
type StoreOption func(*ConversationStore)

// WithLogger sets the logger for notification failures.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *ConversationStore) { s.logger = l }
}

// NewConversationStore returns a store on db notifying through pub and sub.
// Clients sharing db must share the pub/sub backend to see each other's
// writes.
func NewConversationStore(db *DB, pub message.Publisher, sub message.Subscriber, opts ...StoreOption) *ConversationStore {
	s := &ConversationStore{db: db, pub: pub, sub: sub, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateConversation inserts a conversation owned by ownerID.
func (s *ConversationStore) CreateConversation(ctx context.Context, ownerID, title string) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("owner id is empty: %w", campus.ErrValidation)
	}
	id := uuid.NewString()
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO conversations (id, owner_id, title, created_at) VALUES (?, ?, ?, ?)`,
		id, ownerID, title, s.db.timestamp())
	if err != nil {
		return "", fmt.Errorf("insert conversation: %w", err)
	}
	s.notify(conversationsTopic+ownerID, id)
	return id, nil
}

// AppendMessage inserts a message into conversation conversationID. It
// returns campus.ErrNotFound if the conversation does not exist.
func (s *ConversationStore) AppendMessage(ctx context.Context, conversationID string, role campus.Role, content string) (string, error) {
	if !role.Valid() {
		return "", fmt.Errorf("role %q: %w", role, campus.ErrValidation)
	}
	if _, err := s.owner(ctx, conversationID); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, conversationID, string(role), content, s.db.timestamp())
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}
	s.notify(messagesTopic+conversationID, id)
	return id, nil
}

// DeleteConversation deletes conversation id. Its messages are kept. It
// returns campus.ErrNotFound if the conversation does not exist.
func (s *ConversationStore) DeleteConversation(ctx context.Context, id string) error {
	ownerID, err := s.owner(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	s.notify(conversationsTopic+ownerID, id)
	return nil
}

// SubscribeConversations delivers the conversations owned by ownerID,
// newest first.
func (s *ConversationStore) SubscribeConversations(ctx context.Context, ownerID string) (*campus.Subscription[campus.Conversation], error) {
	return subscribe(ctx, s, conversationsTopic+ownerID, func(ctx context.Context) ([]campus.Conversation, error) {
		return s.conversations(ctx, ownerID)
	})
}

// SubscribeMessages delivers the messages of conversationID, oldest first.
func (s *ConversationStore) SubscribeMessages(ctx context.Context, conversationID string) (*campus.Subscription[campus.Message], error) {
	return subscribe(ctx, s, messagesTopic+conversationID, func(ctx context.Context) ([]campus.Message, error) {
		return s.messages(ctx, conversationID)
	})
}

func (s *ConversationStore) owner(ctx context.Context, conversationID string) (string, error) {
	var ownerID string
	err := s.db.db.QueryRowContext(ctx,
		`SELECT owner_id FROM conversations WHERE id = ?`, conversationID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("conversation %s: %w", conversationID, campus.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query conversation: %w", err)
	}
	return ownerID, nil
}

func (s *ConversationStore) conversations(ctx context.Context, ownerID string) ([]campus.Conversation, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT id, owner_id, title, created_at
		FROM conversations
		WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var out []campus.Conversation
	for rows.Next() {
		var c campus.Conversation
		var created int64
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Title, &created); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		c.CreatedAt = time.Unix(0, created)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return out, nil
}

func (s *ConversationStore) messages(ctx context.Context, conversationID string) ([]campus.Message, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []campus.Message
	for rows.Next() {
		var m campus.Message
		var role string
		var created int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = campus.Role(role)
		m.CreatedAt = time.Unix(0, created)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

// notify publishes a change on topic. The write it reports has already
// committed, so a failure is logged and not returned.
func (s *ConversationStore) notify(topic, id string) {
	if err := s.pub.Publish(topic, watermill.NewMessage([]byte(id))); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("publish change")
	}
}

// subscribe runs query once and again after every notification on topic,
// delivering each result latest-wins until ctx is done or the subscription
// is closed. The topic is subscribed before the first query so no write is
// missed.
func subscribe[T any](ctx context.Context, s *ConversationStore, topic string, query func(context.Context) ([]T, error)) (*campus.Subscription[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	events, err := s.sub.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan campus.Snapshot[T], 1)
	go func() {
		defer close(out)
		run := func() {
			items, err := query(ctx)
			if ctx.Err() != nil {
				return
			}
			campus.Deliver(out, campus.Snapshot[T]{Items: items, Err: err})
		}
		run()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-events:
				if !ok {
					return
				}
				msg.Ack()
				run()
			}
		}
	}()
	return campus.NewSubscription[T](out, cancel), nil
}
