package domain

import "time"

// AuditRecord is one immutable entry in the review audit log. Records are
// written whole or not at all; once written they are never mutated.
type AuditRecord struct {
	ID            string    `json:"id"`
	Seq           uint64    `json:"seq"`
	Timestamp     time.Time `json:"ts"`
	Node          string    `json:"node"`
	RequestedTier string    `json:"requested_tier"`
	UsedTier      string    `json:"used_tier,omitempty"`
	Verdict       string    `json:"verdict"`
	Rationale     string    `json:"rationale,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	Credential    string    `json:"credential,omitempty"`
	Rotated       bool      `json:"rotated"`
	Attempts      int       `json:"attempts"`
}

// Review verdicts as recorded in the audit log.
const (
	VerdictApproved      = "approved"
	VerdictRejected      = "rejected"
	VerdictIndeterminate = "indeterminate"
	VerdictError         = "error"
)
