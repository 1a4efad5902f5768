package mock

import (
	"context"
	"sync"

	"github.com/fwojciec/campus"
)

// AnswerService is a test double for campus.AnswerService.
// Set AnswerFn before calling Answer.
type AnswerService struct {
	AnswerFn func(ctx context.Context, q campus.Question) (string, error)
}

// Answer delegates to AnswerFn.
func (a *AnswerService) Answer(ctx context.Context, q campus.Question) (string, error) {
	return a.AnswerFn(ctx, q)
}

// KeyValueStore is an in-memory campus.KeyValueStore. GetFn and SetFn
// override the map when set.
type KeyValueStore struct {
	GetFn func(key string) (string, bool, error)
	SetFn func(key, value string) error

	mu     sync.Mutex
	values map[string]string
}

// Get delegates to GetFn, or reads the map.
func (s *KeyValueStore) Get(key string) (string, bool, error) {
	if s.GetFn != nil {
		return s.GetFn(key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set delegates to SetFn, or writes the map.
func (s *KeyValueStore) Set(key, value string) error {
	if s.SetFn != nil {
		return s.SetFn(key, value)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	return nil
}
