package campus

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Controller is the session state machine of one client. It mirrors the
// signed-in user's conversations and the open conversation's messages from
// a ConversationStore and runs the send and delete operations.
//
// Every state change is published as a View on the channel returned by
// Views. The channel holds only the latest view.
type Controller struct {
	cfg     Config
	idp     IdentityProvider
	store   ConversationStore
	answers AnswerService
	prefs   KeyValueStore
	logger  zerolog.Logger

	// ctx bounds store subscriptions; it is cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	views  chan View
	pumps  sync.WaitGroup

	mu            sync.Mutex
	closed        bool
	unsubscribe   func()
	phase         Phase
	identity      *Identity
	persona       Persona
	year          Year
	current       string
	input         string
	sendState     SendState
	authErr       string
	sendErr       string
	conversations []Conversation
	messages      []Message

	// At most one subscription per stream is live. The generation counters
	// let pumps of superseded subscriptions drop late snapshots.
	convSub *Subscription[Conversation]
	msgSub  *Subscription[Message]
	convGen uint64
	msgGen  uint64
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger for conditions that are logged only, such as
// store subscription failures and failed sends.
func WithLogger(l zerolog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// NewController creates a Controller. Call Start to attach it to the
// identity provider.
func NewController(cfg Config, idp IdentityProvider, store ConversationStore, answers AnswerService, prefs KeyValueStore, opts ...ControllerOption) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:     cfg,
		idp:     idp,
		store:   store,
		answers: answers,
		prefs:   prefs,
		logger:  zerolog.Nop(),
		ctx:     ctx,
		cancel:  cancel,
		views:   make(chan View, 1),
		persona: cfg.DefaultPersona,
		year:    cfg.DefaultYear,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start restores the persisted year and registers for identity changes.
func (c *Controller) Start() {
	year := c.loadYear()
	c.mu.Lock()
	c.year = year
	c.publishLocked()
	c.mu.Unlock()

	unsubscribe := c.idp.OnChange(c.setIdentity)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
}

// Close tears down every subscription and waits for their pumps to exit.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	unsubscribe := c.unsubscribe
	c.closeConversationsLocked()
	c.closeMessagesLocked()
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.cancel()
	c.pumps.Wait()
	return nil
}

// Views returns the channel on which state changes are published.
func (c *Controller) Views() <-chan View { return c.views }

// View returns the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// SubmitCredentials signs in or signs up. On success the identity arrives
// through the provider's change notification. On failure the readable reason
// is kept in View.AuthError and the error is returned.
func (c *Controller) SubmitCredentials(ctx context.Context, cr Credentials) error {
	c.mu.Lock()
	c.authErr = ""
	c.publishLocked()
	c.mu.Unlock()

	var err error
	switch cr.Mode {
	case AuthSignUp:
		_, err = c.idp.SignUp(ctx, cr.Email, cr.Password)
	default:
		_, err = c.idp.SignIn(ctx, cr.Email, cr.Password)
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("mode", cr.Mode.String()).Msg("authentication failed")
		c.mu.Lock()
		c.authErr = AuthErrorMessage(err)
		c.publishLocked()
		c.mu.Unlock()
		return err
	}
	return nil
}

// SignOut signs the current identity out. The reset to the authentication
// phase happens on the provider's change notification.
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.idp.SignOut(ctx); err != nil {
		c.logger.Error().Err(err).Msg("sign out failed")
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// SetInput replaces the input buffer.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.input == text {
		return
	}
	c.input = text
	c.publishLocked()
}

// Open makes id the open conversation.
func (c *Controller) Open(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.identity == nil || c.current == id {
		return
	}
	c.setCurrentLocked(id)
	c.publishLocked()
}

// NewChat resets to the new-chat state: no open conversation, no messages.
func (c *Controller) NewChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCurrentLocked("")
	c.publishLocked()
}

// SetPersona selects the persona sent with the following questions.
func (c *Controller) SetPersona(p Persona) error {
	if _, err := ParsePersona(c.cfg.Personas, string(p)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persona = p
	c.publishLocked()
	return nil
}

// CyclePersona selects the persona after the current one.
func (c *Controller) CyclePersona() Persona {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persona = next(c.cfg.Personas, c.persona)
	c.publishLocked()
	return c.persona
}

// SetYear selects the academic year and persists it.
func (c *Controller) SetYear(y Year) error {
	if _, err := ParseYear(c.cfg.Years, string(y)); err != nil {
		return err
	}
	c.mu.Lock()
	c.year = y
	c.publishLocked()
	c.mu.Unlock()

	if err := c.prefs.Set(c.cfg.YearKey, string(y)); err != nil {
		c.logger.Error().Err(err).Str("year", string(y)).Msg("persist year")
		return fmt.Errorf("persist year: %w", err)
	}
	return nil
}

// CycleYear selects the year after the current one. The year is selected
// even when persisting it fails; the error reports the failed write.
func (c *Controller) CycleYear() (Year, error) {
	c.mu.Lock()
	y := next(c.cfg.Years, c.year)
	c.mu.Unlock()
	return y, c.SetYear(y)
}

// Send sends the input buffer as a question and stores the answer. It is
// BeginSend followed by the delivery it returns.
//
// A failed Answer Service call is not silent: its error stays in
// View.SendError until the next send, and nothing is written to the
// conversation in its place.
func (c *Controller) Send(ctx context.Context) error {
	deliver, err := c.BeginSend()
	if err != nil {
		return err
	}
	return deliver(ctx)
}

// BeginSend captures the input buffer as the question, clears the buffer and
// raises the in-flight flag without blocking. Edits made after it returns do
// not change the captured question. The returned function delivers the
// question and must be called exactly once.
//
// Delivery creates and opens a conversation when none is open. The user
// message is stored before the Answer Service is called, so it stays in the
// conversation when the call fails. The in-flight flag is lowered on every
// exit path. A failed delivery is kept in View.SendError until the next send
// instead of being dropped silently.
func (c *Controller) BeginSend() (func(context.Context) error, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendState == SendSending {
		return nil, ErrSendInFlight
	}
	if strings.TrimSpace(c.input) == "" {
		return nil, ErrEmptyMessage
	}
	if c.identity == nil {
		return nil, ErrNotAuthenticated
	}
	text := c.input
	c.input = ""
	c.sendState = SendSending
	c.sendErr = ""
	identity := *c.identity
	conversationID := c.current
	q := Question{Message: text, Year: c.year, Persona: c.persona}
	c.publishLocked()

	var once sync.Once
	return func(ctx context.Context) (err error) {
		err = ErrSendInFlight
		once.Do(func() { err = c.finishSend(ctx, identity, conversationID, q) })
		return err
	}, nil
}

func (c *Controller) finishSend(ctx context.Context, identity Identity, conversationID string, q Question) (err error) {
	defer func() {
		c.mu.Lock()
		c.sendState = SendIdle
		if err != nil {
			c.sendErr = err.Error()
		}
		c.publishLocked()
		c.mu.Unlock()
	}()

	if err := c.deliver(ctx, identity, conversationID, q); err != nil {
		c.logger.Error().Err(err).Str("uid", identity.UID).Msg("send failed")
		return err
	}
	return nil
}

func (c *Controller) deliver(ctx context.Context, identity Identity, conversationID string, q Question) error {
	if conversationID == "" {
		id, err := c.store.CreateConversation(ctx, identity.UID, c.cfg.DeriveTitle(q.Message))
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		conversationID = id
		c.mu.Lock()
		if c.identity != nil && c.identity.UID == identity.UID && !c.closed {
			c.setCurrentLocked(id)
			c.publishLocked()
		}
		c.mu.Unlock()
	}

	if _, err := c.store.AppendMessage(ctx, conversationID, RoleUser, q.Message); err != nil {
		return fmt.Errorf("append user message: %w", err)
	}

	token, err := c.idp.Token(ctx, identity)
	if err != nil {
		return fmt.Errorf("identity token: %w", err)
	}
	q.Token = token

	answer, err := c.answers.Answer(ctx, q)
	if err != nil {
		return fmt.Errorf("answer: %w", err)
	}

	if _, err := c.store.AppendMessage(ctx, conversationID, RoleAssistant, answer); err != nil {
		return fmt.Errorf("append assistant message: %w", err)
	}
	return nil
}

// DeleteConversation deletes conversation id after confirm approves it. It
// reports whether the conversation was deleted. Deleting the open
// conversation resets to the new-chat state. Messages are not deleted.
func (c *Controller) DeleteConversation(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	if confirm == nil || !confirm.Confirm(c.cfg.DeletePrompt) {
		return false, nil
	}
	if err := c.store.DeleteConversation(ctx, id); err != nil {
		c.logger.Error().Err(err).Str("conversation", id).Msg("delete failed")
		return false, fmt.Errorf("delete conversation: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == id {
		c.setCurrentLocked("")
		c.publishLocked()
	}
	return true, nil
}

// setIdentity is the identity provider callback.
func (c *Controller) setIdentity(id *Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if id != nil && c.identity != nil && c.identity.UID == id.UID {
		identity := *id
		c.identity = &identity
		c.publishLocked()
		return
	}

	c.closeConversationsLocked()
	c.setCurrentLocked("")
	c.conversations = nil

	if id == nil {
		c.identity = nil
		c.phase = PhaseAuth
		c.publishLocked()
		return
	}

	identity := *id
	c.identity = &identity
	c.phase = PhaseMain
	c.authErr = ""
	c.sendErr = ""

	sub, err := c.store.SubscribeConversations(c.ctx, identity.UID)
	if err != nil {
		c.logger.Error().Err(err).Str("uid", identity.UID).Msg("subscribe conversations")
	} else {
		c.convGen++
		c.convSub = sub
		gen := c.convGen
		c.pumps.Add(1)
		go pump(c, sub, "conversations", func(items []Conversation) bool {
			if gen != c.convGen {
				return false
			}
			c.conversations = items
			return true
		})
	}
	c.publishLocked()
}

// setCurrentLocked switches the open conversation, replacing the message
// subscription.
func (c *Controller) setCurrentLocked(id string) {
	c.closeMessagesLocked()
	c.current = id
	c.messages = nil
	if id == "" {
		return
	}
	sub, err := c.store.SubscribeMessages(c.ctx, id)
	if err != nil {
		c.logger.Error().Err(err).Str("conversation", id).Msg("subscribe messages")
		return
	}
	c.msgSub = sub
	gen := c.msgGen
	c.pumps.Add(1)
	go pump(c, sub, "messages", func(items []Message) bool {
		if gen != c.msgGen {
			return false
		}
		c.messages = items
		return true
	})
}

func (c *Controller) closeConversationsLocked() {
	c.convGen++
	if c.convSub != nil {
		c.convSub.Close()
		c.convSub = nil
	}
}

func (c *Controller) closeMessagesLocked() {
	c.msgGen++
	if c.msgSub != nil {
		c.msgSub.Close()
		c.msgSub = nil
	}
}

// pump applies snapshots from sub until it is closed or the controller
// shuts down. apply runs under the controller lock and reports whether the
// snapshot was still current.
func pump[T any](c *Controller, sub *Subscription[T], stream string, apply func([]T) bool) {
	defer c.pumps.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			if snap.Err != nil {
				c.logger.Error().Err(snap.Err).Str("stream", stream).Msg("subscription failed")
				continue
			}
			c.mu.Lock()
			if apply(snap.Items) {
				c.publishLocked()
			}
			c.mu.Unlock()
		}
	}
}

func (c *Controller) loadYear() Year {
	v, ok, err := c.prefs.Get(c.cfg.YearKey)
	if err != nil {
		c.logger.Warn().Err(err).Msg("read persisted year")
		return c.cfg.DefaultYear
	}
	if !ok {
		return c.cfg.DefaultYear
	}
	y, err := ParseYear(c.cfg.Years, v)
	if err != nil {
		c.logger.Warn().Err(err).Msg("ignoring persisted year")
		return c.cfg.DefaultYear
	}
	return y
}

func (c *Controller) viewLocked() View {
	v := View{
		Phase:         c.phase,
		Persona:       c.persona,
		Year:          c.year,
		Current:       c.current,
		Input:         c.input,
		Send:          c.sendState,
		AuthError:     c.authErr,
		SendError:     c.sendErr,
		Conversations: slices.Clone(c.conversations),
		Messages:      slices.Clone(c.messages),
	}
	if c.identity != nil {
		identity := *c.identity
		v.Identity = &identity
	}
	return v
}

// publishLocked replaces any unread view with the current one. Every caller
// holds c.mu, so there is a single sender at a time and the send never
// blocks.
func (c *Controller) publishLocked() {
	v := c.viewLocked()
	select {
	case <-c.views:
	default:
	}
	c.views <- v
}
