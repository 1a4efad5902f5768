package firebase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/campus"
	"github.com/fwojciec/campus/firebase"
	"github.com/fwojciec/campus/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFirebase serves the Identity Toolkit and Secure Token endpoints.
type fakeFirebase struct {
	t         *testing.T
	authCode  int
	authBody  string
	refreshes atomic.Int32
	refreshFn func(w http.ResponseWriter, form url.Values)
	lastPath  string
	lastBody  map[string]any
	mu        sync.Mutex
}

func (f *fakeFirebase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, http.MethodPost, r.Method)
	assert.Equal(f.t, "test-key", r.URL.Query().Get("key"))

	if r.URL.Path == "/v1/token" {
		f.refreshes.Add(1)
		assert.Equal(f.t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(f.t, r.ParseForm())
		f.refreshFn(w, r.PostForm)
		return
	}

	assert.Equal(f.t, "application/json", r.Header.Get("Content-Type"))
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	f.mu.Lock()
	f.lastPath = r.URL.Path
	f.lastBody = body
	f.mu.Unlock()

	if f.authCode != 0 && f.authCode != http.StatusOK {
		w.WriteHeader(f.authCode)
		_, _ = w.Write([]byte(f.authBody))
		return
	}
	_, _ = w.Write([]byte(`{
		"localId": "uid-1",
		"email": "student@example.edu",
		"idToken": "id-token-1",
		"refreshToken": "refresh-1",
		"expiresIn": "3600"
	}`))
}

func newFake(t *testing.T, configure ...func(*fakeFirebase)) (*fakeFirebase, *httptest.Server) {
	t.Helper()
	f := &fakeFirebase{t: t}
	for _, fn := range configure {
		fn(f)
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func newClient(srv *httptest.Server, opts ...firebase.Option) *firebase.Client {
	opts = append([]firebase.Option{
		firebase.WithBaseURL(srv.URL),
		firebase.WithTokenURL(srv.URL),
		firebase.WithHTTPClient(srv.Client()),
	}, opts...)
	return firebase.New("test-key", opts...)
}

func TestClient_SignIn(t *testing.T) {
	t.Parallel()

	f, srv := newFake(t)
	c := newClient(srv)

	id, err := c.SignIn(context.Background(), " student@example.edu ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, campus.Identity{UID: "uid-1", Email: "student@example.edu"}, id)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "/v1/accounts:signInWithPassword", f.lastPath)
	assert.Equal(t, "student@example.edu", f.lastBody["email"])
	assert.Equal(t, "secret1", f.lastBody["password"])
	assert.Equal(t, true, f.lastBody["returnSecureToken"])
}

func TestClient_SignUp(t *testing.T) {
	t.Parallel()

	f, srv := newFake(t)
	c := newClient(srv)

	_, err := c.SignUp(context.Background(), "student@example.edu", "secret1")
	require.NoError(t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "/v1/accounts:signUp", f.lastPath)
}

func TestClient_ErrorReasons(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		reason  string
	}{
		{"EMAIL_NOT_FOUND", "Incorrect email or password."},
		{"INVALID_PASSWORD", "Incorrect email or password."},
		{"INVALID_LOGIN_CREDENTIALS", "Incorrect email or password."},
		{"EMAIL_EXISTS", "An account with this email already exists."},
		{"WEAK_PASSWORD : Password should be at least 6 characters", "Password should be at least 6 characters."},
		{"TOO_MANY_ATTEMPTS_TRY_LATER : Access to this account has been temporarily disabled", "Too many attempts. Try again later."},
		{"INVALID_EMAIL", "Enter a valid email address."},
		{"SOMETHING_NEW", "Authentication failed (SOMETHING_NEW)."},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			t.Parallel()
			_, srv := newFake(t, func(f *fakeFirebase) {
				f.authCode = http.StatusBadRequest
				f.authBody = `{"error":{"code":400,"message":"` + tt.message + `"}}`
			})
			c := newClient(srv)

			var r recorder
			c.OnChange(r.fn)

			_, err := c.SignIn(context.Background(), "a@b.c", "x")
			require.Error(t, err)

			var authErr *campus.AuthError
			require.True(t, errors.As(err, &authErr))
			assert.Equal(t, "Firebase", authErr.Provider)
			assert.Equal(t, tt.reason, authErr.Reason)
			assert.Equal(t, tt.reason, campus.AuthErrorMessage(err))
			assert.Len(t, r.all(), 1, "no identity change on failure")
		})
	}
}

func TestClient_ServerError(t *testing.T) {
	t.Parallel()

	_, srv := newFake(t, func(f *fakeFirebase) {
		f.authCode = http.StatusServiceUnavailable
		f.authBody = "upstream unavailable"
	})
	c := newClient(srv)

	_, err := c.SignIn(context.Background(), "a@b.c", "x")
	require.Error(t, err)
	var authErr *campus.AuthError
	assert.False(t, errors.As(err, &authErr))
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestClient_Reason(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Incorrect email or password.", firebase.Reason("INVALID_PASSWORD"))
	assert.Equal(t, "Authentication failed (X).", firebase.Reason("X : detail"))
}

// recorder collects identity notifications.
type recorder struct {
	mu  sync.Mutex
	ids []*campus.Identity
}

func (r *recorder) fn(id *campus.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recorder) all() []*campus.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*campus.Identity(nil), r.ids...)
}

func TestClient_OnChange(t *testing.T) {
	t.Parallel()

	_, srv := newFake(t)
	c := newClient(srv)

	var r recorder
	unsubscribe := c.OnChange(r.fn)

	_, err := c.SignIn(context.Background(), "student@example.edu", "secret1")
	require.NoError(t, err)
	require.NoError(t, c.SignOut(context.Background()))

	ids := r.all()
	require.Len(t, ids, 3)
	assert.Nil(t, ids[0])
	require.NotNil(t, ids[1])
	assert.Equal(t, "uid-1", ids[1].UID)
	assert.Nil(t, ids[2])

	unsubscribe()
	_, err = c.SignIn(context.Background(), "student@example.edu", "secret1")
	require.NoError(t, err)
	assert.Len(t, r.all(), 3)
}

func TestClient_Token(t *testing.T) {
	t.Parallel()

	t.Run("returns the current token while fresh", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		c := newClient(srv)
		id, err := c.SignIn(context.Background(), "student@example.edu", "secret1")
		require.NoError(t, err)

		token, err := c.Token(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "id-token-1", token)
		assert.Equal(t, int32(0), f.refreshes.Load())
	})

	t.Run("refreshes within five minutes of expiry", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t, func(f *fakeFirebase) {
			f.refreshFn = func(w http.ResponseWriter, form url.Values) {
				assert.Equal(t, "refresh_token", form.Get("grant_type"))
				assert.Equal(t, "refresh-1", form.Get("refresh_token"))
				_, _ = w.Write([]byte(`{"id_token":"id-token-2","refresh_token":"refresh-2","expires_in":"3600","user_id":"uid-1"}`))
			}
		})
		now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
		var mu sync.Mutex
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		c := newClient(srv, firebase.WithClock(clock))
		id, err := c.SignIn(context.Background(), "student@example.edu", "secret1")
		require.NoError(t, err)

		mu.Lock()
		now = now.Add(56 * time.Minute)
		mu.Unlock()

		token, err := c.Token(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "id-token-2", token)

		token, err = c.Token(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "id-token-2", token)
		assert.Equal(t, int32(1), f.refreshes.Load())
	})

	t.Run("rejected refresh signs out", func(t *testing.T) {
		t.Parallel()
		_, srv := newFake(t, func(f *fakeFirebase) {
			f.refreshFn = func(w http.ResponseWriter, _ url.Values) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"code":400,"message":"TOKEN_EXPIRED"}}`))
			}
		})
		now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
		c := newClient(srv, firebase.WithClock(func() time.Time { return now }))
		id, err := c.SignIn(context.Background(), "student@example.edu", "secret1")
		require.NoError(t, err)

		var r recorder
		c.OnChange(r.fn)
		now = now.Add(2 * time.Hour)
		_, err = c.Token(context.Background(), id)
		require.ErrorIs(t, err, firebase.ErrSessionExpired)

		ids := r.all()
		require.Len(t, ids, 2)
		assert.Nil(t, ids[1])
	})

	t.Run("sign out during a refresh stays signed out", func(t *testing.T) {
		t.Parallel()
		entered := make(chan struct{})
		release := make(chan struct{})
		_, srv := newFake(t, func(f *fakeFirebase) {
			f.refreshFn = func(w http.ResponseWriter, _ url.Values) {
				close(entered)
				<-release
				_, _ = w.Write([]byte(`{"id_token":"id-token-2","refresh_token":"refresh-2","expires_in":"3600","user_id":"uid-1"}`))
			}
		})
		now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
		var mu sync.Mutex
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		prefs := &mock.KeyValueStore{}
		c := newClient(srv, firebase.WithClock(clock), firebase.WithSessionStore(prefs))
		id, err := c.SignIn(context.Background(), "student@example.edu", "secret1")
		require.NoError(t, err)

		mu.Lock()
		now = now.Add(2 * time.Hour)
		mu.Unlock()

		errCh := make(chan error, 1)
		go func() {
			_, err := c.Token(context.Background(), id)
			errCh <- err
		}()
		<-entered
		require.NoError(t, c.SignOut(context.Background()))
		close(release)

		assert.ErrorIs(t, <-errCh, campus.ErrNotAuthenticated)
		raw, _, err := prefs.Get(firebase.SessionKey)
		require.NoError(t, err)
		assert.Empty(t, raw)

		restored := newClient(srv, firebase.WithSessionStore(prefs))
		require.NoError(t, restored.Restore(context.Background()))
		var r recorder
		restored.OnChange(r.fn)
		assert.Nil(t, r.all()[0])
	})

	t.Run("other identity is rejected", func(t *testing.T) {
		t.Parallel()
		_, srv := newFake(t)
		c := newClient(srv)
		_, err := c.Token(context.Background(), campus.Identity{UID: "uid-1"})
		assert.ErrorIs(t, err, campus.ErrNotAuthenticated)
	})
}

func TestClient_Restore(t *testing.T) {
	t.Parallel()

	_, srv := newFake(t)
	prefs := &mock.KeyValueStore{}

	first := newClient(srv, firebase.WithSessionStore(prefs))
	id, err := first.SignIn(context.Background(), "student@example.edu", "secret1")
	require.NoError(t, err)

	second := newClient(srv, firebase.WithSessionStore(prefs))
	require.NoError(t, second.Restore(context.Background()))
	var r recorder
	second.OnChange(r.fn)
	require.NotNil(t, r.all()[0])
	assert.Equal(t, id.UID, r.all()[0].UID)

	token, err := second.Token(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "id-token-1", token)

	require.NoError(t, second.SignOut(context.Background()))
	third := newClient(srv, firebase.WithSessionStore(prefs))
	require.NoError(t, third.Restore(context.Background()))
	var r3 recorder
	third.OnChange(r3.fn)
	assert.Nil(t, r3.all()[0])
}

func TestClient_RestoreCorruptSession(t *testing.T) {
	t.Parallel()

	_, srv := newFake(t)
	prefs := &mock.KeyValueStore{}
	require.NoError(t, prefs.Set(firebase.SessionKey, "{not json"))

	c := newClient(srv, firebase.WithSessionStore(prefs))
	require.NoError(t, c.Restore(context.Background()))
	v, _, err := prefs.Get(firebase.SessionKey)
	require.NoError(t, err)
	assert.Empty(t, v)
}
