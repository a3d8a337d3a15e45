package source

import (
	"strconv"
	"strings"
	"time"
)

// Socrata timestamp layouts seen across the upstream datasets.
var dateLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseFloat parses a numeric string defensively: empty or unparseable
// values yield nil, never an error. Upstream data mixes "$1,500,000",
// "1500000.00", and garbage in the same column.
func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseDate parses a date string against the known upstream layouts,
// returning nil when nothing matches.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// strPtr returns a pointer to the trimmed string, or nil when empty.
func strPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// orUnknown substitutes a sentinel for empty values in required string
// fields.
func orUnknown(s, sentinel string) string {
	if strings.TrimSpace(s) == "" {
		return sentinel
	}
	return strings.TrimSpace(s)
}

// joinNonEmpty joins the non-empty parts with sep.
func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, sep)
}
