package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/campus"
)

// Interface compliance check.
var _ campus.IdentityProvider = (*Client)(nil)

// ErrSessionExpired indicates the refresh token was rejected. The session
// is signed out.
var ErrSessionExpired = errors.New("firebase: session expired")

// Client implements [campus.IdentityProvider] for a Firebase project.
type Client struct {
	apiKey      string
	identityURL string
	tokenURL    string
	httpClient  *http.Client
	prefs       campus.KeyValueStore
	now         func() time.Time

	refreshMu sync.Mutex

	mu        sync.Mutex
	session   *session
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn func(*campus.Identity)
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the Identity Toolkit base URL. Useful for testing with
// httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.identityURL = url }
}

// WithTokenURL sets the Secure Token base URL.
func WithTokenURL(url string) Option {
	return func(c *Client) { c.tokenURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSessionStore persists the session in prefs so a restart stays signed
// in.
func WithSessionStore(prefs campus.KeyValueStore) Option {
	return func(c *Client) { c.prefs = prefs }
}

// WithClock sets the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a [Client] for the project with the given web API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		identityURL: defaultIdentityURL,
		tokenURL:    defaultTokenURL,
		httpClient:  http.DefaultClient,
		now:         time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Restore resumes the persisted session without contacting Firebase. An
// expired ID token is refreshed by the next call to Token.
func (c *Client) Restore(_ context.Context) error {
	if c.prefs == nil {
		return nil
	}
	raw, ok, err := c.prefs.Get(SessionKey)
	if err != nil {
		return fmt.Errorf("firebase: read session: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}
	var s session
	if err := json.Unmarshal([]byte(raw), &s); err != nil || s.UID == "" || s.RefreshToken == "" {
		return c.prefs.Set(SessionKey, "")
	}
	c.attach(&s)
	return nil
}

// SignIn signs in with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (campus.Identity, error) {
	return c.authenticate(ctx, signInPath, email, password)
}

// SignUp creates an account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password string) (campus.Identity, error) {
	return c.authenticate(ctx, signUpPath, email, password)
}

// SignOut forgets the session. Firebase ID tokens cannot be revoked from
// the client; they expire on their own.
func (c *Client) SignOut(_ context.Context) error {
	if err := c.install(nil); err != nil {
		return fmt.Errorf("firebase: forget session: %w", err)
	}
	return nil
}

// OnChange registers fn and calls it with the current identity.
func (c *Client) OnChange(fn func(*campus.Identity)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	current := c.session.identity()
	c.mu.Unlock()

	fn(current)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Token returns an ID token for id, refreshing it when it expires within
// five minutes.
func (c *Client) Token(ctx context.Context, id campus.Identity) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil || s.UID != id.UID {
		return "", campus.ErrNotAuthenticated
	}
	if c.now().Add(refreshWindow).Before(s.ExpiresAt) {
		return s.IDToken, nil
	}

	refreshed, err := c.refresh(ctx, s)
	if err != nil {
		return "", err
	}

	// A sign out or sign in during the refresh replaced s; the refreshed
	// session must not be written back over it.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != s {
		return "", campus.ErrNotAuthenticated
	}
	if err := c.save(refreshed); err != nil {
		return "", fmt.Errorf("firebase: save session: %w", err)
	}
	c.session = refreshed
	return refreshed.IDToken, nil
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (campus.Identity, error) {
	body, err := json.Marshal(apiCredentials{
		Email:             strings.TrimSpace(email),
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return campus.Identity{}, fmt.Errorf("firebase: %w", err)
	}

	var resp apiAuthResponse
	if err := c.post(ctx, c.identityURL+path, "application/json", bytes.NewReader(body), &resp); err != nil {
		return campus.Identity{}, err
	}

	expires, err := parseExpiresIn(resp.ExpiresIn)
	if err != nil {
		return campus.Identity{}, err
	}
	s := &session{
		UID:          resp.LocalID,
		Email:        resp.Email,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    c.now().Add(expires),
	}
	if s.UID == "" || s.IDToken == "" {
		return campus.Identity{}, errors.New("firebase: response missing localId or idToken")
	}
	if err := c.install(s); err != nil {
		return campus.Identity{}, fmt.Errorf("firebase: save session: %w", err)
	}
	return *s.identity(), nil
}

func (c *Client) refresh(ctx context.Context, s *session) (*session, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {s.RefreshToken},
	}
	var resp apiRefreshResponse
	err := c.post(ctx, c.tokenURL+refreshPath, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &resp)
	var authErr *campus.AuthError
	if errors.As(err, &authErr) {
		// The refresh token was rejected: revoked, expired or disabled.
		_ = c.SignOut(ctx)
		return nil, fmt.Errorf("%w: %s", ErrSessionExpired, authErr.Reason)
	}
	if err != nil {
		return nil, err
	}

	expires, err := parseExpiresIn(resp.ExpiresIn)
	if err != nil {
		return nil, err
	}
	refreshed := *s
	refreshed.IDToken = resp.IDToken
	if resp.RefreshToken != "" {
		refreshed.RefreshToken = resp.RefreshToken
	}
	refreshed.ExpiresAt = c.now().Add(expires)
	return &refreshed, nil
}

// post sends body to endpoint with the API key and decodes a 200 response
// into out. Client error responses with an Identity Toolkit error body
// become *campus.AuthError.
func (c *Client) post(ctx context.Context, endpoint, contentType string, body io.Reader, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("firebase: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return fmt.Errorf("firebase: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("firebase: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("firebase: decode response: %w", err)
	}
	return nil
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("firebase: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		return fmt.Errorf("firebase: HTTP %d: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("firebase: HTTP %d: %s", resp.StatusCode, apiErr.Error.Message)
	}
	return &campus.AuthError{
		Provider: providerName,
		Reason:   Reason(apiErr.Error.Message),
		Err:      fmt.Errorf("firebase: HTTP %d: %s", resp.StatusCode, apiErr.Error.Message),
	}
}

func parseExpiresIn(s string) (time.Duration, error) {
	secs, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("firebase: invalid expiresIn %q: %w", s, err)
	}
	return time.Duration(secs) * time.Second, nil
}

// save writes s to the preferences, or clears them when s is nil. The
// caller holds c.mu.
func (c *Client) save(s *session) error {
	if c.prefs == nil {
		return nil
	}
	if s == nil {
		return c.prefs.Set(SessionKey, "")
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.prefs.Set(SessionKey, string(raw))
}

// install saves s and makes it the current session under one lock, then
// notifies listeners. Nothing changes when the save fails.
func (c *Client) install(s *session) error {
	c.mu.Lock()
	if err := c.save(s); err != nil {
		c.mu.Unlock()
		return err
	}
	c.session = s
	fns := c.listenerFnsLocked()
	c.mu.Unlock()

	notify(fns, s)
	return nil
}

// attach replaces the session without saving it and notifies listeners
// outside the lock.
func (c *Client) attach(s *session) {
	c.mu.Lock()
	c.session = s
	fns := c.listenerFnsLocked()
	c.mu.Unlock()

	notify(fns, s)
}

func (c *Client) listenerFnsLocked() []func(*campus.Identity) {
	fns := make([]func(*campus.Identity), len(c.listeners))
	for i, l := range c.listeners {
		fns[i] = l.fn
	}
	return fns
}

func notify(fns []func(*campus.Identity), s *session) {
	for _, fn := range fns {
		fn(s.identity())
	}
}

func (s *session) identity() *campus.Identity {
	if s == nil {
		return nil
	}
	return &campus.Identity{UID: s.UID, Email: s.Email}
}
