package feed

import (
	"strings"
)

// Guard validates a fetched file's header against the fixed expectation for
// the source before any row is parsed. A partial parse against a drifted
// schema is worse than no parse at all.
//
// A placeholder body served with a 200 (the literal "404: Not Found" showing
// up as the first header cell) is a transport failure, not a schema change.
func Guard(source string, expected, got []string) error {
	if len(got) > 0 && isPlaceholderBody(got[0]) {
		return &SourceUnavailableError{Source: source, Reason: strings.TrimSpace(got[0])}
	}

	if len(got) < len(expected) {
		return &SchemaDriftError{Source: source, Expected: expected, Got: got}
	}
	for i, col := range expected {
		if strings.TrimSpace(got[i]) != col {
			return &SchemaDriftError{Source: source, Expected: expected, Got: got[:len(expected)]}
		}
	}
	return nil
}

func isPlaceholderBody(first string) bool {
	first = strings.TrimSpace(first)
	return strings.HasPrefix(first, "404") || strings.Contains(first, "Not Found")
}
