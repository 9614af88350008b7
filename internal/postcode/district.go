// Package postcode derives grouping keys from UK postcode strings. Both the
// aggregation and enrichment pipelines key on the codes produced here, so
// this package is the single source of truth for them.
package postcode

import (
	"regexp"
	"strings"
)

// Full postcode with no separating space, e.g. "SW1A1AA" or "M11AE".
// The inward part is always digit + two letters, which is what lets "M11AE"
// split unambiguously into "M1" + "1AE".
var reFullPostcode = regexp.MustCompile(`^([A-Z]{1,2}[0-9][0-9A-Z]?)[0-9][A-Z]{2}$`)

// Outward code on its own: 1-2 letters, 1-2 digits, optional trailing letter.
var reOutward = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{1,2}[A-Z]?`)

// District extracts the postcode district from a full postcode,
// e.g. "SW1A 1AA" -> "SW1A". Total for non-empty input: when no pattern
// applies the whole trimmed uppercased string is returned.
func District(raw string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))

	if fields := strings.Fields(trimmed); len(fields) >= 2 {
		return fields[0]
	}

	if m := reFullPostcode.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}

	if m := reOutward.FindString(trimmed); m != "" {
		return m
	}

	return trimmed
}

// Normalize uppercases and trims a postcode for comparison, keeping the
// internal space if present.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NormalizeCode uppercases a code and strips all whitespace. Polygon join
// keys and cache file keys use this form.
func NormalizeCode(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(s), "")
}
