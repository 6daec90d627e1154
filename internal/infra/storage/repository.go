package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/governor/internal/core/domain"
)

var (
	// ErrCredentialNotFound is returned when a credential doesn't exist
	ErrCredentialNotFound = errors.New("credential not found")
)

// CredentialRepository handles credential storage operations. Mutations
// are partial: marking one credential exhausted or disabled never rewrites
// other entries' secrets, so concurrent sessions sharing the store observe
// each other's penalties without clobbering unrelated state.
type CredentialRepository interface {
	// List returns all credentials, including disabled and exhausted ones.
	List(ctx context.Context) ([]domain.Credential, error)

	// Save creates or replaces a credential (operator configuration).
	Save(ctx context.Context, cred domain.Credential) error

	// MarkExhausted sets the quota cooldown on one credential.
	MarkExhausted(ctx context.Context, name string, until time.Time) error

	// Disable permanently disables one credential.
	Disable(ctx context.Context, name string) error
}
