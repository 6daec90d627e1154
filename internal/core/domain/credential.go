package domain

import (
	"log/slog"
	"time"
)

// Credential represents one named API credential for the reviewer service.
// The secret must never appear in logs or audit records; only the name is
// observable outside the store.
type Credential struct {
	Name           string     `json:"name" yaml:"name" db:"name"`
	Secret         string     `json:"secret" yaml:"secret" db:"secret"`
	Enabled        bool       `json:"enabled" yaml:"enabled" db:"enabled"`
	ExhaustedUntil *time.Time `json:"exhausted_until,omitempty" yaml:"exhausted_until,omitempty" db:"exhausted_until"`
}

// Eligible reports whether the credential may be used at the given instant.
func (c Credential) Eligible(now time.Time) bool {
	if !c.Enabled {
		return false
	}
	if c.ExhaustedUntil != nil && now.Before(*c.ExhaustedUntil) {
		return false
	}
	return true
}

// String identifies the credential by name only.
func (c Credential) String() string {
	return c.Name
}

// LogValue keeps the secret out of structured logs.
func (c Credential) LogValue() slog.Value {
	return slog.StringValue(c.Name)
}
