package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vietddude/governor/internal/core/domain"
	"github.com/vietddude/governor/internal/infra/storage"
)

// Store is the default credential store: one JSON document per credential
// under a directory. Keeping each credential in its own file means marking
// one exhausted rewrites only that file; other entries' secrets are never
// touched, and concurrent sessions sharing the directory see durable
// penalties on their next List.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) the credential directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) List(ctx context.Context) ([]domain.Credential, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential dir: %w", err)
	}

	var creds []domain.Credential
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		c, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, nil
}

func (s *Store) Save(ctx context.Context, cred domain.Credential) error {
	return s.write(cred)
}

func (s *Store) MarkExhausted(ctx context.Context, name string, until time.Time) error {
	c, err := s.read(s.path(name))
	if err != nil {
		return err
	}
	c.ExhaustedUntil = &until
	return s.write(c)
}

func (s *Store) Disable(ctx context.Context, name string) error {
	c, err := s.read(s.path(name))
	if err != nil {
		return err
	}
	c.Enabled = false
	return s.write(c)
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *Store) read(path string) (domain.Credential, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return domain.Credential{}, storage.ErrCredentialNotFound
	}
	if err != nil {
		return domain.Credential{}, fmt.Errorf("failed to read credential: %w", err)
	}
	var c domain.Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.Credential{}, fmt.Errorf("failed to parse credential %s: %w", filepath.Base(path), err)
	}
	return c, nil
}

// write persists one credential atomically: temp file in the same
// directory, then rename, so a reader never sees a torn document.
func (s *Store) write(cred domain.Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	path := s.path(cred.Name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace credential: %w", err)
	}
	return nil
}
