package scoring

import "github.com/brandlens/brandlens/internal/core"

// Neutral is the score assigned when a component's evidence could not be gathered:
// half the weight, rounded down.
func Neutral(name core.ComponentName, weight int, reason string) core.ComponentScore {
	if weight < 0 {
		weight = 0
	}
	return core.ComponentScore{
		Name:  name,
		Score: weight / 2,
		Details: core.Details{
			"warning": core.String(reason),
			"neutral": core.Bool(true),
			"reason":  core.String("provider unavailable, neutral score"),
		},
	}
}

func clamp(score, weight int) int {
	if score < 0 {
		return 0
	}
	if score > weight {
		return weight
	}
	return score
}
