package schema

import (
	"strings"
)

// Fingerprint builds the stable submitter id for an entity from its defining
// attributes. Empty parts are dropped so optional levels of the geographic
// hierarchy never leave holes in the id.
//
// Each part is lower-cased, whitespace and commas become underscores, and any
// remaining character outside [a-z0-9_-] is collapsed to a single dash.
func Fingerprint(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		c := cleanPart(p)
		if c != "" {
			kept = append(kept, c)
		}
	}
	return strings.Join(kept, "_")
}

func cleanPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	lastDash := false
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == ',':
			if !lastUnderscore {
				b.WriteByte('_')
			}
			lastUnderscore = true
			lastDash = false
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-':
			b.WriteRune(r)
			lastDash = false
			lastUnderscore = false
		default:
			if !lastDash {
				b.WriteByte('-')
			}
			lastDash = true
			lastUnderscore = false
		}
	}
	return strings.Trim(b.String(), "-")
}

// LocationSubmitterID returns the submitter id of a summary_location node.
func LocationSubmitterID(country, state, county string) string {
	return Fingerprint(TypeSummaryLocation, country, state, county)
}

// ClinicalSubmitterID returns the submitter id of a summary_clinical node for
// one calendar day.
func ClinicalSubmitterID(country, state, county, date string) string {
	return Fingerprint(TypeSummaryClinical, country, state, county, date)
}
