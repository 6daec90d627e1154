package llm

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a reply whose transport succeeded but whose
// body failed structural validation (no candidates, empty text, missing
// model identifier).
var ErrMalformedResponse = errors.New("malformed response")

// APIError is a non-2xx reply from the reviewer service.
type APIError struct {
	StatusCode int
	Status     string // e.g. "RESOURCE_EXHAUSTED"
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}
