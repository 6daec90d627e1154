package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/governor/internal/core/domain"
	"github.com/vietddude/governor/internal/infra/storage"
)

// Store is an in-memory credential store, used in tests and for
// single-shot runs where no persistence is configured.
type Store struct {
	mu    sync.RWMutex
	creds map[string]domain.Credential
}

func NewStore() *Store {
	return &Store{creds: make(map[string]domain.Credential)}
}

func (s *Store) List(ctx context.Context) ([]domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Credential, 0, len(s.creds))
	for _, c := range s.creds {
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) Save(ctx context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.Name] = cred
	return nil
}

func (s *Store) MarkExhausted(ctx context.Context, name string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creds[name]
	if !ok {
		return storage.ErrCredentialNotFound
	}
	c.ExhaustedUntil = &until
	s.creds[name] = c
	return nil
}

func (s *Store) Disable(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creds[name]
	if !ok {
		return storage.ErrCredentialNotFound
	}
	c.Enabled = false
	s.creds[name] = c
	return nil
}
