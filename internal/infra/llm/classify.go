package llm

import (
	"errors"
	"strings"

	"github.com/vietddude/governor/internal/core/domain"
)

// Classify maps a failed call to exactly one error category. It is total:
// every error, including ones it has never seen, maps to a category, with
// CategoryUnknown as the conservative default.
func Classify(err error) domain.ErrorCategory {
	if err == nil {
		return domain.CategoryUnknown
	}

	if errors.Is(err, ErrMalformedResponse) {
		return domain.CategoryParse
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if cat, ok := classifyStatus(apiErr.StatusCode); ok {
			return cat
		}
	}

	s := strings.ToLower(err.Error())

	// Entitlement exhausted: only a different credential (or waiting out
	// the cooldown) can help.
	if strings.Contains(s, "quota") || strings.Contains(s, "resource_exhausted") ||
		strings.Contains(s, "resource exhausted") || strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests") || strings.Contains(s, "429") {
		return domain.CategoryQuota
	}

	// Credential itself invalid: never retry it.
	if strings.Contains(s, "api key not valid") || strings.Contains(s, "api_key_invalid") ||
		strings.Contains(s, "permission denied") || strings.Contains(s, "permission_denied") ||
		strings.Contains(s, "unauthorized") || strings.Contains(s, "unauthenticated") ||
		strings.Contains(s, "forbidden") {
		return domain.CategoryAuth
	}

	// Transient overload or transport trouble: same credential, after backoff.
	if strings.Contains(s, "overloaded") || strings.Contains(s, "unavailable") ||
		strings.Contains(s, "deadline") || strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") || strings.Contains(s, "connection reset") ||
		strings.Contains(s, "internal error") || strings.Contains(s, "502") ||
		strings.Contains(s, "503") || strings.Contains(s, "504") {
		return domain.CategoryCapacity
	}

	return domain.CategoryUnknown
}

func classifyStatus(code int) (domain.ErrorCategory, bool) {
	switch code {
	case 429:
		return domain.CategoryQuota, true
	case 401, 403:
		return domain.CategoryAuth, true
	case 500, 502, 503, 504:
		return domain.CategoryCapacity, true
	}
	return domain.CategoryUnknown, false
}
