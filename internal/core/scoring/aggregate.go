package scoring

import (
	"math"

	"github.com/brandlens/brandlens/internal/core"
)

// Aggregate combines per-locale component scores. Min mode keeps the lowest score
// seen for each component; weighted mode averages by LocaleSpec.Weight and rounds
// half away from zero. When every locale weight is zero the plain mean is used.
func Aggregate(reports []core.LocaleReport, mode core.AggregationMode, names []core.ComponentName) (map[core.ComponentName]int, error) {
	if len(reports) == 0 {
		return nil, &core.ValidationError{Field: "locales", Reason: "at least one locale report is required"}
	}
	if len(names) == 0 {
		names = core.ComponentNames()
	}
	mode, ok := core.ParseAggregationMode(string(mode))
	if !ok {
		return nil, &core.ConfigError{Field: "aggregation", Reason: "unknown mode"}
	}

	combined := make(map[core.ComponentName]int, len(names))
	for _, name := range names {
		switch mode {
		case core.AggregationWeighted:
			combined[name] = weightedScore(reports, name)
		default:
			combined[name] = minScore(reports, name)
		}
	}
	return combined, nil
}

func minScore(reports []core.LocaleReport, name core.ComponentName) int {
	best, seen := 0, false
	for _, rep := range reports {
		cs, ok := rep.Components[name]
		if !ok {
			continue
		}
		if !seen || cs.Score < best {
			best = cs.Score
			seen = true
		}
	}
	return best
}

func weightedScore(reports []core.LocaleReport, name core.ComponentName) int {
	var sum, weights, plain float64
	n := 0
	for _, rep := range reports {
		cs, ok := rep.Components[name]
		if !ok {
			continue
		}
		w := rep.Locale.Weight
		if w < 0 || math.IsNaN(w) {
			w = 0
		}
		sum += float64(cs.Score) * w
		weights += w
		plain += float64(cs.Score)
		n++
	}
	if n == 0 {
		return 0
	}
	if weights == 0 {
		return int(math.Round(plain / float64(n)))
	}
	return int(math.Round(sum / weights))
}
