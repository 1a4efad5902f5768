// Package mock provides test doubles for campus interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/campus"
)

// Interface compliance checks.
var (
	_ campus.IdentityProvider  = (*IdentityProvider)(nil)
	_ campus.ConversationStore = (*ConversationStore)(nil)
	_ campus.AnswerService     = (*AnswerService)(nil)
	_ campus.KeyValueStore     = (*KeyValueStore)(nil)
)

// IdentityProvider is a test double for campus.IdentityProvider.
// Set the function fields for the methods you need.
type IdentityProvider struct {
	SignInFn   func(ctx context.Context, email, password string) (campus.Identity, error)
	SignUpFn   func(ctx context.Context, email, password string) (campus.Identity, error)
	SignOutFn  func(ctx context.Context) error
	OnChangeFn func(fn func(*campus.Identity)) func()
	TokenFn    func(ctx context.Context, id campus.Identity) (string, error)
}

// SignIn delegates to SignInFn.
func (p *IdentityProvider) SignIn(ctx context.Context, email, password string) (campus.Identity, error) {
	return p.SignInFn(ctx, email, password)
}

// SignUp delegates to SignUpFn.
func (p *IdentityProvider) SignUp(ctx context.Context, email, password string) (campus.Identity, error) {
	return p.SignUpFn(ctx, email, password)
}

// SignOut delegates to SignOutFn.
func (p *IdentityProvider) SignOut(ctx context.Context) error {
	return p.SignOutFn(ctx)
}

// OnChange delegates to OnChangeFn.
func (p *IdentityProvider) OnChange(fn func(*campus.Identity)) func() {
	return p.OnChangeFn(fn)
}

// Token delegates to TokenFn.
func (p *IdentityProvider) Token(ctx context.Context, id campus.Identity) (string, error) {
	return p.TokenFn(ctx, id)
}
