package campus

import "context"

// Identity is an authenticated principal.
type Identity struct {
	UID   string
	Email string
}

// AuthMode selects between signing in to an existing identity and creating
// a new one.
type AuthMode int

const (
	AuthSignIn AuthMode = iota
	AuthSignUp
)

func (m AuthMode) String() string {
	if m == AuthSignUp {
		return "sign up"
	}
	return "sign in"
}

// Credentials are submitted from the authentication screen.
type Credentials struct {
	Email    string
	Password string
	Mode     AuthMode
}

// IdentityProvider authenticates users and issues identity tokens.
//
// OnChange registers fn and invokes it once with the current identity (nil
// when signed out), then again after every sign in, sign up and sign out.
// The returned function removes the registration.
//
// Token returns an identity token valid for id. Implementations may refresh
// it; callers must not cache it.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context) error
	OnChange(fn func(*Identity)) (unsubscribe func())
	Token(ctx context.Context, id Identity) (string, error)
}
