package domain

import "time"

// ErrorCategory classifies a failed reviewer call.
type ErrorCategory string

const (
	// CategoryQuota means the credential's entitlement is exhausted;
	// recoverable only on a different credential or after the cooldown.
	CategoryQuota ErrorCategory = "quota"

	// CategoryCapacity means transient overload at the service; the same
	// credential may be retried after backoff.
	CategoryCapacity ErrorCategory = "capacity"

	// CategoryAuth means the credential itself is invalid and must never
	// be retried, even across restarts.
	CategoryAuth ErrorCategory = "auth"

	// CategoryParse means the transport succeeded but the response body
	// failed structural validation. Not a credential problem.
	CategoryParse ErrorCategory = "parse"

	// CategoryUnknown is the conservative default: not retryable on the
	// same credential, no credential penalty.
	CategoryUnknown ErrorCategory = "unknown"
)

// CredentialSkip records why a candidate credential was not used.
type CredentialSkip struct {
	Credential string        `json:"credential"`
	Category   ErrorCategory `json:"category,omitempty"`
	Reason     string        `json:"reason"`
}

// Outcome is the structured result of one logical reviewer invocation.
// Operational failures are reported here, never as raised errors.
type Outcome struct {
	Success        bool             `json:"success"`
	ErrorCategory  ErrorCategory    `json:"error_category,omitempty"`
	CredentialUsed string           `json:"credential_used"`
	Rotated        bool             `json:"rotated"`
	Attempts       int              `json:"attempts"`
	Duration       time.Duration    `json:"duration"`
	Text           string           `json:"text,omitempty"`
	ModelUsed      string           `json:"model_used,omitempty"`
	Skips          []CredentialSkip `json:"skips,omitempty"`
}
