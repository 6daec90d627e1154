package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vietddude/governor/internal/core/domain"
	"github.com/vietddude/governor/internal/infra/storage"
)

// CredentialRepo implements storage.CredentialRepository using PostgreSQL.
// Exhaustion and disable updates touch a single row and column, so the
// secrets of unrelated credentials are never rewritten.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new PostgreSQL credential repository.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

type credentialRow struct {
	Name           string       `db:"name"`
	Secret         string       `db:"secret"`
	Enabled        bool         `db:"enabled"`
	ExhaustedUntil sql.NullTime `db:"exhausted_until"`
}

func (r *CredentialRepo) List(ctx context.Context) ([]domain.Credential, error) {
	var rows []credentialRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT name, secret, enabled, exhausted_until FROM credentials ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	creds := make([]domain.Credential, 0, len(rows))
	for _, row := range rows {
		c := domain.Credential{
			Name:    row.Name,
			Secret:  row.Secret,
			Enabled: row.Enabled,
		}
		if row.ExhaustedUntil.Valid {
			t := row.ExhaustedUntil.Time
			c.ExhaustedUntil = &t
		}
		creds = append(creds, c)
	}
	return creds, nil
}

func (r *CredentialRepo) Save(ctx context.Context, cred domain.Credential) error {
	var until sql.NullTime
	if cred.ExhaustedUntil != nil {
		until = sql.NullTime{Time: *cred.ExhaustedUntil, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (name, secret, enabled, exhausted_until, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (name) DO UPDATE
		 SET secret = EXCLUDED.secret,
		     enabled = EXCLUDED.enabled,
		     exhausted_until = EXCLUDED.exhausted_until,
		     updated_at = now()`,
		cred.Name, cred.Secret, cred.Enabled, until)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (r *CredentialRepo) MarkExhausted(ctx context.Context, name string, until time.Time) error {
	return r.update(ctx, name,
		`UPDATE credentials SET exhausted_until = $2, updated_at = now() WHERE name = $1`, until)
}

func (r *CredentialRepo) Disable(ctx context.Context, name string) error {
	return r.update(ctx, name,
		`UPDATE credentials SET enabled = FALSE, updated_at = now() WHERE name = $1`)
}

func (r *CredentialRepo) update(ctx context.Context, name, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, append([]any{name}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("credential %q: %w", name, storage.ErrCredentialNotFound)
	}
	return nil
}
