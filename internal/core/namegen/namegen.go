// Package namegen produces deterministic brand name ideas from seed keywords.
package namegen

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultLimit is the number of ideas returned when the caller does not ask for a
// specific count.
const DefaultLimit = 20

var prefixes = []string{"neo", "meta", "quant", "hyper", "blue", "bright", "clear", "ever", "true"}

var suffixes = []string{"ly", "ify", "io", "ster", "scape", "verse", "labs", "works", "forge"}

var styleInfix = map[string]string{
	"modern":       "x",
	"classic":      "a",
	"playful":      "oo",
	"professional": "pro",
}

// Styles lists the accepted style hints.
func Styles() []string {
	return []string{"modern", "classic", "playful", "professional"}
}

// ParseStyle validates a style hint. The empty string means no style.
func ParseStyle(value string) (string, error) {
	style := strings.ToLower(strings.TrimSpace(value))
	if style == "" {
		return "", nil
	}
	if _, ok := styleInfix[style]; !ok {
		return "", fmt.Errorf("unknown style %q (expected one of %s)", value, strings.Join(Styles(), ", "))
	}
	return style, nil
}

// Generate combines every prefix with every seed and suffix, then falls back to
// seed+suffix pairs, until limit unique title-cased names are collected. Ordering is
// stable for the same input.
func Generate(keywords []string, style string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}

	seeds := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if s := slugify(k); s != "" {
			seeds = append(seeds, s)
		}
	}
	if len(seeds) == 0 {
		return nil
	}
	infix := styleInfix[strings.ToLower(strings.TrimSpace(style))]

	results := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	add := func(name string) bool {
		title := titleCase(name)
		if _, ok := seen[title]; ok {
			return false
		}
		seen[title] = struct{}{}
		results = append(results, title)
		return len(results) >= limit
	}

	for _, pref := range prefixes {
		for _, seed := range seeds {
			base := pref + infix + seed
			for _, suf := range suffixes {
				if add(base + suf) {
					return results
				}
			}
		}
	}
	for _, seed := range seeds {
		for _, suf := range suffixes {
			if add(seed + suf) {
				return results
			}
		}
	}
	return results
}

func slugify(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// titleCase upper-cases the first letter of every letter run.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
