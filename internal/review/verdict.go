package review

import (
	"strings"

	"github.com/vietddude/governor/internal/core/domain"
)

// ParseVerdict maps reviewer output to an audit verdict plus rationale.
// The reviewer is instructed to lead with APPROVED or REJECTED; anything
// else is recorded verbatim as indeterminate rather than guessed at.
func ParseVerdict(text string) (verdict, rationale string) {
	trimmed := strings.TrimSpace(text)
	upper := strings.ToUpper(trimmed)

	switch {
	case strings.HasPrefix(upper, "APPROVED"):
		return domain.VerdictApproved, rationaleAfterToken(trimmed, len("APPROVED"))
	case strings.HasPrefix(upper, "REJECTED"):
		return domain.VerdictRejected, rationaleAfterToken(trimmed, len("REJECTED"))
	default:
		return domain.VerdictIndeterminate, trimmed
	}
}

func rationaleAfterToken(text string, tokenLen int) string {
	rest := text[tokenLen:]
	rest = strings.TrimLeft(rest, ":.- \t\n")
	return strings.TrimSpace(rest)
}
