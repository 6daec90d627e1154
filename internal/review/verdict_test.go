package review

import (
	"testing"

	"github.com/vietddude/governor/internal/core/domain"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		text      string
		verdict   string
		rationale string
	}{
		{"APPROVED: the design is sound.", domain.VerdictApproved, "the design is sound."},
		{"approved - minor nits only", domain.VerdictApproved, "minor nits only"},
		{"REJECTED: missing failure-mode analysis.", domain.VerdictRejected, "missing failure-mode analysis."},
		{"I think this is mostly fine.", domain.VerdictIndeterminate, "I think this is mostly fine."},
		{"", domain.VerdictIndeterminate, ""},
	}

	for _, tt := range tests {
		verdict, rationale := ParseVerdict(tt.text)
		if verdict != tt.verdict {
			t.Errorf("ParseVerdict(%q) verdict = %q, want %q", tt.text, verdict, tt.verdict)
		}
		if rationale != tt.rationale {
			t.Errorf("ParseVerdict(%q) rationale = %q, want %q", tt.text, rationale, tt.rationale)
		}
	}
}
