package scoring

import (
	"fmt"

	"github.com/brandlens/brandlens/internal/core"
)

// ScoreSearchRank scores organic search results. matches must already be filtered to
// near matches; stats are computed over them. A band cap of zero leaves the band
// uncapped.
func ScoreSearchRank(stats core.MatchStats, matches []core.RankedHit, weight int, policy core.SearchPenalties) core.ComponentScore {
	if weight < 0 {
		weight = 0
	}
	details := core.Details{
		"n_95":      core.Int(stats.N95),
		"n_90":      core.Int(stats.N90),
		"n_80":      core.Int(stats.N80),
		"max_score": core.Int(stats.MaxScore),
		"matches":   core.Int(len(matches)),
	}

	var parts []penaltyPart
	if best, ok := bestRank(matches); ok {
		details["best_rank"] = core.Int(best.Position)
		details["best_match"] = core.String(best.Text)
		parts = append(parts, penaltyPart{
			reason: fmt.Sprintf("matching result at rank %d", best.Position),
			points: rankPenalty(best.Position, policy),
		})
	}

	only95 := stats.N95
	only90 := stats.N90 - stats.N95
	only80 := stats.N80 - stats.N90
	parts = append(parts,
		penaltyPart{reason: fmt.Sprintf("%d near-identical result(s) >=95", only95), points: capped(only95*policy.Band95Each, policy.Band95Cap)},
		penaltyPart{reason: fmt.Sprintf("%d strong result(s) 90-94", only90), points: capped(only90*policy.Band90Each, policy.Band90Cap)},
		penaltyPart{reason: fmt.Sprintf("%d similar result(s) 80-89", only80), points: capped(only80*policy.Band80Each, policy.Band80Cap)},
	)

	penalty, reason := sumPenalties(parts)
	details["penalty"] = core.Int(penalty)
	details["reason"] = core.String(reason)

	return core.ComponentScore{Name: core.ComponentSearchRank, Score: clamp(weight-penalty, weight), Details: details}
}

func rankPenalty(rank int, policy core.SearchPenalties) int {
	switch {
	case rank <= 3:
		return policy.Rank3
	case rank <= 10:
		return policy.Rank10
	default:
		return policy.RankBeyond
	}
}

func bestRank(matches []core.RankedHit) (core.RankedHit, bool) {
	if len(matches) == 0 {
		return core.RankedHit{}, false
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Position < best.Position {
			best = m
		}
	}
	return best, true
}

func capped(points, limit int) int {
	if limit > 0 && points > limit {
		return limit
	}
	return points
}
