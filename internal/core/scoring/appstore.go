package scoring

import (
	"fmt"

	"github.com/brandlens/brandlens/internal/core"
)

// ScoreAppStore scores an app-store suggestion or search list. Every matching
// candidate costs the penalty of the strictest band it reaches, and the best match
// sitting in the first three positions costs policy.Top3 once. stats must be computed
// over hits in the same order.
func ScoreAppStore(name core.ComponentName, stats core.MatchStats, hits []core.RankedHit, weight int, policy core.BandPenalties) core.ComponentScore {
	if weight < 0 {
		weight = 0
	}
	only95 := stats.N95
	only90 := stats.N90 - stats.N95
	only80 := stats.N80 - stats.N90

	parts := []penaltyPart{
		{reason: fmt.Sprintf("%d near-identical match(es) >=95", only95), points: only95 * policy.Band95},
		{reason: fmt.Sprintf("%d strong match(es) 90-94", only90), points: only90 * policy.Band90},
		{reason: fmt.Sprintf("%d similar match(es) 80-89", only80), points: only80 * policy.Band80},
	}

	details := core.Details{
		"n_95":      core.Int(stats.N95),
		"n_90":      core.Int(stats.N90),
		"n_80":      core.Int(stats.N80),
		"max_score": core.Int(stats.MaxScore),
	}
	if stats.TopHitPos != nil {
		pos := *stats.TopHitPos
		details["top_hit_pos"] = core.Int(pos)
		if pos >= 1 && pos <= len(hits) {
			details["top_hit"] = core.String(hits[pos-1].Text)
		}
		if pos <= 3 {
			parts = append(parts, penaltyPart{reason: fmt.Sprintf("match ranked #%d", pos), points: policy.Top3})
		}
	}

	penalty, reason := sumPenalties(parts)
	details["penalty"] = core.Int(penalty)
	details["reason"] = core.String(reason)

	return core.ComponentScore{Name: name, Score: clamp(weight-penalty, weight), Details: details}
}

type penaltyPart struct {
	reason string
	points int
}

// sumPenalties adds the parts and names the largest one.
func sumPenalties(parts []penaltyPart) (int, string) {
	total := 0
	dominant := penaltyPart{reason: "no near matches"}
	for _, p := range parts {
		if p.points <= 0 {
			continue
		}
		total += p.points
		if p.points > dominant.points {
			dominant = p
		}
	}
	return total, dominant.reason
}
