// Package normalize canonicalizes developer names for identity matching.
// Two names normalizing to the same string are treated as the same legal
// entity by the auto-linker; the dedup finder compares normalized names by
// edit distance.
package normalize

import (
	"regexp"
	"strings"
)

// Legal and business suffix vocabulary removed as whole words. Kept flat
// and data-driven so new suffixes are additive.
var stripSuffixes = []string{
	"llc", "inc", "corp", "corporation", "company", "co",
	"ltd", "limited", "lp", "llp", "pllc",
	"l l c", "l p", // dotted initialisms arrive spaced once punctuation strips
	"trust", "revocable trust", "family trust", "living trust",
	"holdings", "enterprises", "properties", "group", "partners",
	"investments", "development", "developers", "realty",
}

var (
	stripPunct = regexp.MustCompile(`[.,\-_#&'"()]`)
	collapseWS = regexp.MustCompile(`\s+`)

	suffixRE = buildSuffixRE()
)

func buildSuffixRE() *regexp.Regexp {
	alts := make([]string, len(stripSuffixes))
	for i, s := range stripSuffixes {
		alts[i] = regexp.QuoteMeta(s)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)\b`)
}

// Name canonicalizes a display name: lower-case, punctuation stripped,
// legal suffixes removed as whole words, whitespace collapsed. The
// transform is deterministic and idempotent: Name(Name(x)) == Name(x).
func Name(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = stripPunct.ReplaceAllString(n, " ")
	n = suffixRE.ReplaceAllString(n, "")
	n = collapseWS.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// Match reports whether two display names normalize to the same entity.
func Match(a, b string) bool {
	return Name(a) == Name(b)
}

// entityPatterns is evaluated in order; first match wins. Keeping this as
// data instead of nested conditionals makes new suffixes additive.
var entityPatterns = []struct {
	keyword string
	label   string
}{
	{"llc", "LLC"},
	{"l.l.c", "LLC"},
	{"pllc", "LLC"},
	{"inc", "Corporation"},
	{"corp", "Corporation"},
	{"corporation", "Corporation"},
	{"llp", "Partnership"},
	{"lp", "Partnership"},
	{"partners", "Partnership"},
	{"trust", "Trust"},
	{"company", "Company"},
	{"co.", "Company"},
	{"holdings", "Company"},
	{"enterprises", "Company"},
	{"properties", "Company"},
	{"development", "Company"},
	{"investments", "Company"},
}

// EntityType classifies a raw display name by its legal suffix. Names with
// no recognized suffix default to "Individual".
func EntityType(name string) string {
	n := " " + strings.ToLower(strings.TrimSpace(name)) + " "
	n = stripPunct.ReplaceAllString(n, " ")
	for _, p := range entityPatterns {
		kw := stripPunct.ReplaceAllString(p.keyword, " ")
		if strings.Contains(n, " "+strings.TrimSpace(kw)+" ") {
			return p.label
		}
	}
	return "Individual"
}
