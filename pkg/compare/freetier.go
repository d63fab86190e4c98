package compare

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// untilPattern matches expiry clauses like "until Jan 20th", "until Jan 20",
// or "until 2026-01-20".
var untilPattern = regexp.MustCompile(`(?i)until\s+([A-Za-z]+\s+\d{1,2}(?:th|st|nd|rd)?|\d{4}-\d{2}-\d{2})`)

var ordinalSuffix = regexp.MustCompile(`(\d{1,2})(?:th|st|nd|rd)`)

// ValidFreeTier evaluates a free-tier note against the given instant. Text
// with an "until <date>" clause is expired once the instant passes the end of
// the named day (the expiry day itself still counts). Text without a clause,
// or with a date we cannot parse, is kept: dropping a live offer is worse
// than showing a stale one.
func ValidFreeTier(freeTier string, at time.Time) string {
	if freeTier == "" {
		return ""
	}

	m := untilPattern.FindStringSubmatch(freeTier)
	if m == nil {
		return freeTier
	}

	expiry, err := parseExpiry(m[1], at.Year())
	if err != nil {
		return freeTier
	}

	// Include the full expiry day.
	expiry = expiry.AddDate(0, 0, 1)
	if !at.Before(expiry) {
		return ""
	}
	return freeTier
}

func parseExpiry(s string, currentYear int) (time.Time, error) {
	if strings.Contains(s, "-") {
		return time.Parse("2006-01-02", s)
	}

	// Month-name-day form, e.g. "Jan 20th" or "January 20". The year is
	// assumed current when absent.
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	for _, layout := range []string{"Jan 2 2006", "January 2 2006"} {
		if t, err := time.Parse(layout, fmt.Sprintf("%s %d", s, currentYear)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized expiry date %q", s)
}
