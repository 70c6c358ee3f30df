package matcher

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize lowercases s, folds accented letters to their base form and collapses
// every run of non-alphanumeric characters into a single space.
func Normalize(s string) string {
	folded := fold(s)
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(folded), " "))
}

// Compact is the normalized form with spaces removed.
func Compact(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "")
}

// fold decomposes s and drops combining marks so "Café" and "Cafe" normalize alike.
// Transformers carry state, so one is built per call.
func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func tokens(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

func sortedTokens(normalized string) string {
	parts := tokens(normalized)
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func compactContains(a, b string) bool {
	ca := strings.ReplaceAll(a, " ", "")
	cb := strings.ReplaceAll(b, " ", "")
	if ca == "" || cb == "" {
		return false
	}
	return strings.Contains(ca, cb) || strings.Contains(cb, ca)
}
