package domain

import "strings"

// AllowedTierFamilies lists the model families the governance reviewer is
// contractually required to run on. A tier outside these families is a
// configuration error, rejected before any network activity.
var AllowedTierFamilies = []string{
	"gemini-2.5-pro",
	"gemini-3-pro",
}

// TierAllowed reports whether tier belongs to an allow-listed family,
// either exactly or as a dated/preview variant (family plus a suffix).
func TierAllowed(tier string) bool {
	for _, family := range AllowedTierFamilies {
		if tier == family || strings.HasPrefix(tier, family+"-") {
			return true
		}
	}
	return false
}

// NormalizeTier strips the resource prefix some API responses carry, so
// "models/gemini-2.5-pro" and "gemini-2.5-pro" compare equal.
func NormalizeTier(tier string) string {
	return strings.TrimPrefix(tier, "models/")
}
