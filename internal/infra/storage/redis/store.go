package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/governor/internal/core/domain"
	"github.com/vietddude/governor/internal/infra/storage"
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Store implements storage.CredentialRepository on Redis, one hash per
// credential. HSET on a single field gives the partial-update guarantee:
// marking a credential exhausted never rewrites another entry's secret.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a new Redis-backed credential store.
func NewStore(cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func credentialKey(name string) string {
	return fmt.Sprintf("governor:credential:%s", name)
}

func (s *Store) List(ctx context.Context) ([]domain.Credential, error) {
	var creds []domain.Credential
	iter := s.rdb.Scan(ctx, 0, credentialKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		fields, err := s.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read credential hash: %w", err)
		}
		if len(fields) == 0 {
			continue
		}
		c, err := credentialFromHash(fields)
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan credentials: %w", err)
	}
	return creds, nil
}

func (s *Store) Save(ctx context.Context, cred domain.Credential) error {
	fields := map[string]any{
		"name":    cred.Name,
		"secret":  cred.Secret,
		"enabled": boolField(cred.Enabled),
	}
	if cred.ExhaustedUntil != nil {
		fields["exhausted_until"] = cred.ExhaustedUntil.UTC().Format(time.RFC3339Nano)
	} else {
		fields["exhausted_until"] = ""
	}
	if err := s.rdb.HSet(ctx, credentialKey(cred.Name), fields).Err(); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (s *Store) MarkExhausted(ctx context.Context, name string, until time.Time) error {
	return s.setField(ctx, name, "exhausted_until", until.UTC().Format(time.RFC3339Nano))
}

func (s *Store) Disable(ctx context.Context, name string) error {
	return s.setField(ctx, name, "enabled", "0")
}

func (s *Store) setField(ctx context.Context, name, field, value string) error {
	key := credentialKey(name)
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check credential: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("credential %q: %w", name, storage.ErrCredentialNotFound)
	}
	if err := s.rdb.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	return nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func credentialFromHash(fields map[string]string) (domain.Credential, error) {
	c := domain.Credential{
		Name:    fields["name"],
		Secret:  fields["secret"],
		Enabled: fields["enabled"] == "1",
	}
	if raw := fields["exhausted_until"]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.Credential{}, fmt.Errorf("failed to parse exhausted_until for %s: %w", c.Name, err)
		}
		c.ExhaustedUntil = &t
	}
	return c, nil
}
