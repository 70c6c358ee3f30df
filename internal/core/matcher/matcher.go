package matcher

import (
	"sort"

	"github.com/brandlens/brandlens/internal/core"
)

// Similarity bands on the 0-100 scale.
const (
	Band95 = 95
	Band90 = 90
	Band80 = 80
)

// DefaultNearMatchThreshold is the similarity at which a candidate collides with the
// query even without substring containment.
const DefaultNearMatchThreshold = 90

// Matcher scores the similarity of two strings on a 0-100 scale. Implementations
// must return 100 for strings with equal normalized forms and must be symmetric.
type Matcher interface {
	Name() string
	ScorePair(a, b string) int
}

// Stats scores every candidate against query. Candidates whose normalized form equals
// the query count toward MaxScore only; they never feed the bands or TopHitPos.
// Positions are the 1-based index in candidates.
func Stats(m Matcher, query string, candidates []string) core.MatchStats {
	hits := make([]core.RankedHit, len(candidates))
	for i, candidate := range candidates {
		hits[i] = core.RankedHit{Text: candidate, Position: i + 1}
	}
	return HitStats(m, query, hits)
}

// HitStats is Stats over provider hits. TopHitPos is the provider position of the
// best placed match; hits without a position fall back to their 1-based index.
func HitStats(m Matcher, query string, hits []core.RankedHit) core.MatchStats {
	var stats core.MatchStats
	normalizedQuery := Normalize(query)

	for i, hit := range hits {
		score := clampScore(m.ScorePair(query, hit.Text))
		if score > stats.MaxScore {
			stats.MaxScore = score
		}
		if Normalize(hit.Text) == normalizedQuery {
			continue
		}

		if score >= Band95 {
			stats.N95++
		}
		if score >= Band90 {
			stats.N90++
		}
		if score >= Band80 {
			stats.N80++
			pos := hit.Position
			if pos <= 0 {
				pos = i + 1
			}
			if stats.TopHitPos == nil || pos < *stats.TopHitPos {
				stats.TopHitPos = &pos
			}
		}
	}
	return stats
}

// IsNearMatch applies the collision rule: identity is never a collision; otherwise
// compact containment in either direction or a score at or above threshold.
func IsNearMatch(m Matcher, query, candidate string, threshold int) bool {
	nq := Normalize(query)
	nc := Normalize(candidate)
	if nq == nc {
		return false
	}
	if compactContains(nq, nc) {
		return true
	}
	return m.ScorePair(query, candidate) >= threshold
}

// FilterNearMatches keeps hits that collide with query, ordered by position.
func FilterNearMatches(m Matcher, query string, hits []core.RankedHit, threshold int) []core.RankedHit {
	var out []core.RankedHit
	for _, hit := range hits {
		if IsNearMatch(m, query, hit.Text, threshold) {
			out = append(out, hit)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Dedupe drops hits whose normalized text was already seen, keeping the first.
func Dedupe(hits []core.RankedHit) []core.RankedHit {
	seen := make(map[string]struct{}, len(hits))
	out := make([]core.RankedHit, 0, len(hits))
	for _, hit := range hits {
		key := Normalize(hit.Text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, hit)
	}
	return out
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
