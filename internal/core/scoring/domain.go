package scoring

import (
	"math"

	"github.com/brandlens/brandlens/internal/core"
)

// DefaultTakenRatio is the share of the domain weight kept when the .com is
// registered. A taken .com is common and not a collision on its own.
const DefaultTakenRatio = 0.6

// ScoreDomain scores a .com availability result. Unknown availability falls back to
// the neutral score.
func ScoreDomain(result core.DomainResult, weight int, takenRatio float64) core.ComponentScore {
	if weight < 0 {
		weight = 0
	}
	details := core.Details{
		"domain":        core.String(result.Domain),
		"available":     core.String(result.Available.String()),
		"authoritative": core.Bool(result.Authoritative),
	}

	switch result.Available {
	case core.AvailabilityAvailable:
		details["reason"] = core.String(".com is available")
		return core.ComponentScore{Name: core.ComponentDomain, Score: weight, Details: details}
	case core.AvailabilityTaken:
		score := int(math.Floor(float64(weight) * takenRatio))
		details["reason"] = core.String(".com is registered")
		details["taken_ratio"] = core.Float(takenRatio)
		return core.ComponentScore{Name: core.ComponentDomain, Score: clamp(score, weight), Details: details}
	default:
		reason := "domain availability unknown"
		if result.Note != "" {
			reason += " (" + result.Note + ")"
		}
		neutral := Neutral(core.ComponentDomain, weight, reason)
		for k, v := range details {
			neutral.Details[k] = v
		}
		return neutral
	}
}
