package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/campus"
	"github.com/fwojciec/campus/firebase"
	"github.com/fwojciec/campus/gemini"
	"github.com/fwojciec/campus/rest"
	"github.com/fwojciec/campus/sqlite"
	"github.com/fwojciec/campus/watermill"
	"github.com/rs/zerolog"
)

// resolveNotifier constructs the change notification backend.
func resolveNotifier(ctx context.Context, s settings, logger zerolog.Logger) (*watermill.PubSub, error) {
	switch s.Notify {
	case "memory":
		return watermill.NewMemory(logger), nil
	case "redis":
		ps, err := watermill.NewRedis(ctx, s.RedisAddr, logger)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("unknown notify backend %q", s.Notify)
	}
}

// restorer is an identity provider that can resume a persisted session.
type restorer interface {
	campus.IdentityProvider
	Restore(ctx context.Context) error
}

// resolveIdentity constructs the identity provider and resumes the previous
// session, if any. Sessions are kept in prefs.
func resolveIdentity(ctx context.Context, s settings, db *sqlite.DB, prefs campus.KeyValueStore) (campus.IdentityProvider, error) {
	var idp restorer
	switch s.Identity {
	case "local":
		idp = sqlite.NewIdentityProvider(db, prefs)
	case "firebase":
		idp = firebase.New(s.FirebaseKey, firebase.WithSessionStore(prefs))
	default:
		return nil, fmt.Errorf("unknown identity backend %q", s.Identity)
	}
	if err := idp.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return idp, nil
}

// resolveAnswers constructs the answer service client.
func resolveAnswers(ctx context.Context, s settings) (campus.AnswerService, error) {
	switch s.Answer {
	case "rest":
		return rest.New(s.Endpoint), nil
	case "gemini":
		var opts []gemini.Option
		if s.GeminiModel != "" {
			opts = append(opts, gemini.WithModel(s.GeminiModel))
		}
		client, err := gemini.New(ctx, s.GeminiKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown answer backend %q", s.Answer)
	}
}
