package scoring

import (
	"fmt"

	"github.com/brandlens/brandlens/internal/core"
)

// Summarize renders one explanation line for an aggregated component score, using
// the reason recorded by the locale whose score was lowest.
func Summarize(name core.ComponentName, score, weight int, reports []core.LocaleReport) string {
	reason := "no evidence"
	lowest := -1
	for _, rep := range reports {
		cs, ok := rep.Components[name]
		if !ok {
			continue
		}
		if lowest == -1 || cs.Score < lowest {
			lowest = cs.Score
			if v, ok := cs.Details["reason"]; ok && v.String() != "" {
				reason = v.String()
			}
		}
	}
	return fmt.Sprintf("%s: %d/%d (%s)", name, score, weight, reason)
}

// Warning formats a provider failure for the explanation list. scope names the
// locale the failure happened in and is omitted when empty.
func Warning(name core.ComponentName, scope, message string) string {
	if scope == "" {
		return fmt.Sprintf("Warning [%s]: %s", name, message)
	}
	return fmt.Sprintf("Warning [%s] (%s): %s", name, scope, message)
}

// VerificationURL formats the manual search check link for one locale.
func VerificationURL(locale core.LocaleSpec, url string) string {
	return fmt.Sprintf("Search verification URL (%s-%d): %s", locale.LanguageCode, locale.LocationCode, url)
}
