package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/fwojciec/campus"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var _ campus.IdentityProvider = (*IdentityProvider)(nil)

// SessionKey is the preference key holding the local session token.
const SessionKey = "local_session"

const provider = "local"

// MinPasswordLength is the shortest password accepted by SignUp.
const MinPasswordLength = 6

// Readable failure reasons.
const (
	reasonBadCredentials = "Incorrect email or password."
	reasonInvalidEmail   = "Enter a valid email address."
	reasonWeakPassword   = "Password should be at least 6 characters."
	reasonEmailExists    = "An account with this email already exists."
)

// IdentityProvider is a campus.IdentityProvider backed by the users and
// sessions tables. Passwords are stored as bcrypt hashes. The session token
// is remembered in a campus.KeyValueStore so a restart stays signed in.
type IdentityProvider struct {
	db    *DB
	prefs campus.KeyValueStore
	cost  int

	mu        sync.Mutex
	token     string
	identity  *campus.Identity
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn func(*campus.Identity)
}

// IdentityOption configures an IdentityProvider.
type IdentityOption func(*IdentityProvider)

// WithBcryptCost sets the bcrypt cost of new password hashes.
func WithBcryptCost(cost int) IdentityOption {
	return func(p *IdentityProvider) { p.cost = cost }
}

// NewIdentityProvider returns a provider on db. prefs may be nil, in which
// case sessions are not remembered.
func NewIdentityProvider(db *DB, prefs campus.KeyValueStore, opts ...IdentityOption) *IdentityProvider {
	p := &IdentityProvider{db: db, prefs: prefs, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Restore resumes the remembered session, if it is still valid.
func (p *IdentityProvider) Restore(ctx context.Context) error {
	if p.prefs == nil {
		return nil
	}
	token, ok, err := p.prefs.Get(SessionKey)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if !ok || token == "" {
		return nil
	}
	var id campus.Identity
	err = p.db.db.QueryRowContext(ctx, `
		SELECT u.uid, u.email
		FROM sessions s JOIN users u ON u.uid = s.uid
		WHERE s.token = ?`, token).Scan(&id.UID, &id.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return p.prefs.Set(SessionKey, "")
	}
	if err != nil {
		return fmt.Errorf("query session: %w", err)
	}
	p.attach(token, &id)
	return nil
}

// SignIn verifies email and password.
func (p *IdentityProvider) SignIn(ctx context.Context, email, password string) (campus.Identity, error) {
	email = normalizeEmail(email)
	var id campus.Identity
	var hash []byte
	err := p.db.db.QueryRowContext(ctx,
		`SELECT uid, email, password_hash FROM users WHERE email = ?`, email).Scan(&id.UID, &id.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return campus.Identity{}, &campus.AuthError{Provider: provider, Reason: reasonBadCredentials}
	}
	if err != nil {
		return campus.Identity{}, fmt.Errorf("query user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return campus.Identity{}, &campus.AuthError{Provider: provider, Reason: reasonBadCredentials, Err: err}
	}
	if err := p.startSession(ctx, id); err != nil {
		return campus.Identity{}, err
	}
	return id, nil
}

// SignUp creates an identity and signs it in.
func (p *IdentityProvider) SignUp(ctx context.Context, email, password string) (campus.Identity, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, " <>") {
		return campus.Identity{}, &campus.AuthError{Provider: provider, Reason: reasonInvalidEmail}
	}
	if len(password) < MinPasswordLength {
		return campus.Identity{}, &campus.AuthError{Provider: provider, Reason: reasonWeakPassword}
	}

	var exists int
	if err := p.db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&exists); err != nil {
		return campus.Identity{}, fmt.Errorf("query user: %w", err)
	}
	if exists > 0 {
		return campus.Identity{}, &campus.AuthError{Provider: provider, Reason: reasonEmailExists}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return campus.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	id := campus.Identity{UID: uuid.NewString(), Email: email}
	if _, err := p.db.db.ExecContext(ctx,
		`INSERT INTO users (uid, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		id.UID, id.Email, hash, p.db.timestamp()); err != nil {
		return campus.Identity{}, fmt.Errorf("insert user: %w", err)
	}
	if err := p.startSession(ctx, id); err != nil {
		return campus.Identity{}, err
	}
	return id, nil
}

// SignOut ends the current session. It is a no-op when signed out.
func (p *IdentityProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()
	if token == "" {
		return nil
	}
	if _, err := p.db.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if p.prefs != nil {
		if err := p.prefs.Set(SessionKey, ""); err != nil {
			return fmt.Errorf("forget session: %w", err)
		}
	}
	p.attach("", nil)
	return nil
}

// OnChange registers fn and calls it with the current identity.
func (p *IdentityProvider) OnChange(fn func(*campus.Identity)) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, listener{id: id, fn: fn})
	current := cloneIdentity(p.identity)
	p.mu.Unlock()

	fn(current)

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, l := range p.listeners {
			if l.id == id {
				p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

// Token returns the session token of id.
func (p *IdentityProvider) Token(_ context.Context, id campus.Identity) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.identity == nil || p.identity.UID != id.UID {
		return "", campus.ErrNotAuthenticated
	}
	return p.token, nil
}

func (p *IdentityProvider) startSession(ctx context.Context, id campus.Identity) error {
	token := uuid.NewString()
	if _, err := p.db.db.ExecContext(ctx,
		`INSERT INTO sessions (token, uid, created_at) VALUES (?, ?, ?)`,
		token, id.UID, p.db.timestamp()); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if p.prefs != nil {
		if err := p.prefs.Set(SessionKey, token); err != nil {
			return fmt.Errorf("remember session: %w", err)
		}
	}
	p.attach(token, &id)
	return nil
}

// attach replaces the current session and notifies listeners outside the
// lock.
func (p *IdentityProvider) attach(token string, id *campus.Identity) {
	p.mu.Lock()
	p.token = token
	p.identity = cloneIdentity(id)
	fns := make([]func(*campus.Identity), len(p.listeners))
	for i, l := range p.listeners {
		fns[i] = l.fn
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(cloneIdentity(id))
	}
}

func cloneIdentity(id *campus.Identity) *campus.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
