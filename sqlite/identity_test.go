package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fwojciec/campus"
	"github.com/fwojciec/campus/mock"
	"github.com/fwojciec/campus/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newIdentityProvider(t *testing.T, db *sqlite.DB, prefs campus.KeyValueStore) *sqlite.IdentityProvider {
	t.Helper()
	return sqlite.NewIdentityProvider(db, prefs, sqlite.WithBcryptCost(bcrypt.MinCost))
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

func reason(t *testing.T, err error) string {
	t.Helper()
	var authErr *campus.AuthError
	require.True(t, errors.As(err, &authErr), "expected AuthError, got %v", err)
	assert.Equal(t, "local", authErr.Provider)
	return authErr.Reason
}

func TestIdentityProvider_SignUpAndSignIn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idp := newIdentityProvider(t, openDB(t), nil)

	created, err := idp.SignUp(ctx, " Student@Example.edu ", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.UID)
	assert.Equal(t, "student@example.edu", created.Email)

	require.NoError(t, idp.SignOut(ctx))

	signedIn, err := idp.SignIn(ctx, "student@example.edu", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created, signedIn)
}

func TestIdentityProvider_Failures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idp := newIdentityProvider(t, openDB(t), nil)
	_, err := idp.SignUp(ctx, "student@example.edu", "secret1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		call   func() error
		reason string
	}{
		{"wrong password", func() error {
			_, err := idp.SignIn(ctx, "student@example.edu", "nope")
			return err
		}, "Incorrect email or password."},
		{"unknown email", func() error {
			_, err := idp.SignIn(ctx, "ghost@example.edu", "secret1")
			return err
		}, "Incorrect email or password."},
		{"duplicate email", func() error {
			_, err := idp.SignUp(ctx, "STUDENT@example.edu", "secret2")
			return err
		}, "An account with this email already exists."},
		{"weak password", func() error {
			_, err := idp.SignUp(ctx, "new@example.edu", "12345")
			return err
		}, "Password should be at least 6 characters."},
		{"invalid email", func() error {
			_, err := idp.SignUp(ctx, "not-an-email", "secret1")
			return err
		}, "Enter a valid email address."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.reason, reason(t, err))
			assert.Equal(t, tt.reason, campus.AuthErrorMessage(err))
		})
	}
}

func TestIdentityProvider_OnChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idp := newIdentityProvider(t, openDB(t), nil)

	var r recorder
	unsubscribe := idp.OnChange(r.fn)

	created, err := idp.SignUp(ctx, "student@example.edu", "secret1")
	require.NoError(t, err)
	require.NoError(t, idp.SignOut(ctx))

	ids := r.all()
	require.Len(t, ids, 3)
	assert.Nil(t, ids[0], "called immediately with the current identity")
	require.NotNil(t, ids[1])
	assert.Equal(t, created.UID, ids[1].UID)
	assert.Nil(t, ids[2])

	unsubscribe()
	_, err = idp.SignIn(ctx, "student@example.edu", "secret1")
	require.NoError(t, err)
	assert.Len(t, r.all(), 3)
}

func TestIdentityProvider_Token(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idp := newIdentityProvider(t, openDB(t), nil)

	id, err := idp.SignUp(ctx, "student@example.edu", "secret1")
	require.NoError(t, err)

	token, err := idp.Token(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = idp.Token(ctx, campus.Identity{UID: "someone-else"})
	assert.ErrorIs(t, err, campus.ErrNotAuthenticated)

	require.NoError(t, idp.SignOut(ctx))
	_, err = idp.Token(ctx, id)
	assert.ErrorIs(t, err, campus.ErrNotAuthenticated)
}

func TestIdentityProvider_Restore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openDB(t)
	prefs := &mock.KeyValueStore{}

	first := newIdentityProvider(t, db, prefs)
	id, err := first.SignUp(ctx, "student@example.edu", "secret1")
	require.NoError(t, err)

	t.Run("resumes the remembered session", func(t *testing.T) {
		second := newIdentityProvider(t, db, prefs)
		require.NoError(t, second.Restore(ctx))
		var r recorder
		second.OnChange(r.fn)
		require.Len(t, r.all(), 1)
		require.NotNil(t, r.all()[0])
		assert.Equal(t, id.UID, r.all()[0].UID)
	})

	t.Run("sign out forgets the session", func(t *testing.T) {
		require.NoError(t, first.SignOut(ctx))
		third := newIdentityProvider(t, db, prefs)
		require.NoError(t, third.Restore(ctx))
		var r recorder
		third.OnChange(r.fn)
		assert.Nil(t, r.all()[0])
	})

	t.Run("stale token is cleared", func(t *testing.T) {
		require.NoError(t, prefs.Set(sqlite.SessionKey, "stale"))
		fourth := newIdentityProvider(t, db, prefs)
		require.NoError(t, fourth.Restore(ctx))
		v, _, err := prefs.Get(sqlite.SessionKey)
		require.NoError(t, err)
		assert.Empty(t, v)
	})
}
