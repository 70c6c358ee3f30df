package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens/internal/core"
)

func intPtr(v int) *int { return &v }

func localeReport(weight float64, scores map[core.ComponentName]int) core.LocaleReport {
	loc := core.DefaultLocale()
	loc.Weight = weight
	components := make(map[core.ComponentName]core.ComponentScore, len(scores))
	for name, s := range scores {
		components[name] = core.ComponentScore{Name: name, Score: s}
	}
	return core.LocaleReport{Locale: loc, Components: components}
}

func TestBinBoundaries(t *testing.T) {
	thresholds := core.Thresholds{Distinct: 80, Likely: 60, Border: 40}
	tests := map[int]core.Grade{
		80:  core.GradeDistinct,
		79:  core.GradeLikelyUnique,
		60:  core.GradeLikelyUnique,
		59:  core.GradeBorderline,
		40:  core.GradeBorderline,
		39:  core.GradeColliding,
		0:   core.GradeColliding,
		-5:  core.GradeColliding,
		140: core.GradeDistinct,
	}
	for total, want := range tests {
		assert.Equal(t, want, Bin(total, thresholds), "total %d", total)
	}
}

func TestAggregateSingleLocaleIdentity(t *testing.T) {
	scores := map[core.ComponentName]int{
		core.ComponentDomain: 15, core.ComponentAppStoreA: 21, core.ComponentAppStoreB: 7, core.ComponentSearchRank: 30,
	}
	for _, mode := range []core.AggregationMode{core.AggregationMin, core.AggregationWeighted} {
		got, err := Aggregate([]core.LocaleReport{localeReport(2.5, scores)}, mode, nil)
		require.NoError(t, err)
		assert.Equal(t, scores, got, mode)
	}
}

func TestAggregateMin(t *testing.T) {
	reports := []core.LocaleReport{
		localeReport(1, map[core.ComponentName]int{core.ComponentDomain: 25}),
		localeReport(1, map[core.ComponentName]int{core.ComponentDomain: 15}),
	}
	got, err := Aggregate(reports, core.AggregationMin, []core.ComponentName{core.ComponentDomain})
	require.NoError(t, err)
	assert.Equal(t, 15, got[core.ComponentDomain])
}

func TestAggregateWeighted(t *testing.T) {
	reports := []core.LocaleReport{
		localeReport(1.0, map[core.ComponentName]int{core.ComponentDomain: 20}),
		localeReport(3.0, map[core.ComponentName]int{core.ComponentDomain: 0}),
	}
	got, err := Aggregate(reports, core.AggregationWeighted, []core.ComponentName{core.ComponentDomain})
	require.NoError(t, err)
	assert.Equal(t, 5, got[core.ComponentDomain])
}

func TestAggregateWeightedZeroWeights(t *testing.T) {
	reports := []core.LocaleReport{
		localeReport(0, map[core.ComponentName]int{core.ComponentDomain: 10}),
		localeReport(0, map[core.ComponentName]int{core.ComponentDomain: 15}),
	}
	got, err := Aggregate(reports, core.AggregationWeighted, []core.ComponentName{core.ComponentDomain})
	require.NoError(t, err)
	assert.Equal(t, 13, got[core.ComponentDomain])
}

func TestAggregateRejectsEmpty(t *testing.T) {
	_, err := Aggregate(nil, core.AggregationMin, nil)
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestNeutralFloorsHalfWeight(t *testing.T) {
	for weight, want := range map[int]int{25: 12, 20: 10, 1: 0, 0: 0} {
		cs := Neutral(core.ComponentAppStoreA, weight, "boom")
		assert.Equal(t, want, cs.Score)
		assert.Equal(t, "boom", cs.Warning())
	}
}

func TestScoreDomain(t *testing.T) {
	available := ScoreDomain(core.DomainResult{Domain: "zynthrex.com", Available: core.AvailabilityAvailable, Authoritative: true}, 25, DefaultTakenRatio)
	assert.Equal(t, 25, available.Score)

	taken := ScoreDomain(core.DomainResult{Available: core.AvailabilityTaken, Authoritative: true}, 25, DefaultTakenRatio)
	assert.Equal(t, 15, taken.Score)

	unknown := ScoreDomain(core.DomainResult{Available: core.AvailabilityUnknown, Note: "transient"}, 25, DefaultTakenRatio)
	assert.Equal(t, 12, unknown.Score)
	assert.Contains(t, unknown.Warning(), "transient")
}

func bandStats(n95, n90, n80 int, top *int) core.MatchStats {
	return core.MatchStats{MaxScore: 99, N95: n95, N90: n90, N80: n80, TopHitPos: top}
}

func TestScoreAppStoreNoMatchesFullWeight(t *testing.T) {
	policy := core.DefaultPenalties().AppStoreA
	cs := ScoreAppStore(core.ComponentAppStoreA, core.MatchStats{}, nil, 25, policy)
	assert.Equal(t, 25, cs.Score)
	assert.Equal(t, "no near matches", cs.Details["reason"].String())
}

func TestScoreAppStoreBandMonotonic(t *testing.T) {
	for _, policy := range []core.BandPenalties{core.DefaultPenalties().AppStoreA, core.DefaultPenalties().AppStoreB} {
		in95 := ScoreAppStore(core.ComponentAppStoreA, bandStats(1, 1, 1, nil), nil, 25, policy)
		in90 := ScoreAppStore(core.ComponentAppStoreA, bandStats(0, 1, 1, nil), nil, 25, policy)
		in80 := ScoreAppStore(core.ComponentAppStoreA, bandStats(0, 0, 1, nil), nil, 25, policy)
		none := ScoreAppStore(core.ComponentAppStoreA, bandStats(0, 0, 0, nil), nil, 25, policy)

		assert.LessOrEqual(t, in95.Score, in90.Score)
		assert.LessOrEqual(t, in90.Score, in80.Score)
		assert.LessOrEqual(t, in80.Score, none.Score)
		assert.Less(t, in95.Score, none.Score)
	}
}

func TestScoreAppStoreTop3Penalty(t *testing.T) {
	policy := core.DefaultPenalties().AppStoreA
	hits := []core.RankedHit{{Text: "a", Position: 1}, {Text: "b", Position: 2}, {Text: "Zynthrex Pro", Position: 3}, {Text: "d", Position: 4}}
	high := ScoreAppStore(core.ComponentAppStoreA, bandStats(0, 1, 1, intPtr(3)), hits, 25, policy)
	low := ScoreAppStore(core.ComponentAppStoreA, bandStats(0, 1, 1, intPtr(4)), hits, 25, policy)
	assert.Less(t, high.Score, low.Score)
	assert.Equal(t, "Zynthrex Pro", high.Details["top_hit"].String())
}

func TestScoreAppStoreSumsCandidatesAndClamps(t *testing.T) {
	policy := core.DefaultPenalties().AppStoreA
	one := ScoreAppStore(core.ComponentAppStoreA, bandStats(1, 1, 1, nil), nil, 25, policy)
	two := ScoreAppStore(core.ComponentAppStoreA, bandStats(2, 2, 2, nil), nil, 25, policy)
	many := ScoreAppStore(core.ComponentAppStoreA, bandStats(20, 20, 20, intPtr(1)), nil, 25, policy)
	assert.Less(t, two.Score, one.Score)
	assert.Equal(t, 0, many.Score)
}

func TestScoreSearchRankMonotonicByRank(t *testing.T) {
	policy := core.DefaultPenalties().Search
	stats := bandStats(0, 0, 1, intPtr(1))
	at := func(rank int) int {
		return ScoreSearchRank(stats, []core.RankedHit{{Text: "Zynthrex Inc", Position: rank}}, 30, policy).Score
	}
	assert.LessOrEqual(t, at(2), at(7))
	assert.LessOrEqual(t, at(7), at(25))
	assert.Less(t, at(25), 30)

	none := ScoreSearchRank(core.MatchStats{}, nil, 30, policy)
	assert.Equal(t, 30, none.Score)
}

func TestScoreSearchRankUsesBestRank(t *testing.T) {
	policy := core.DefaultPenalties().Search
	matches := []core.RankedHit{{Text: "late", Position: 12}, {Text: "early", Position: 2}}
	cs := ScoreSearchRank(core.MatchStats{}, matches, 30, policy)
	best, ok := cs.Details["best_rank"].AsInt()
	require.True(t, ok)
	assert.Equal(t, 2, best)
	assert.Equal(t, "early", cs.Details["best_match"].String())
}

func TestScoresStayWithinWeight(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	penalties := core.DefaultPenalties()
	for i := 0; i < 500; i++ {
		weight := rng.Intn(40)
		n80 := rng.Intn(6)
		n90 := rng.Intn(n80 + 1)
		n95 := rng.Intn(n90 + 1)
		var top *int
		if n80 > 0 {
			top = intPtr(1 + rng.Intn(10))
		}
		stats := core.MatchStats{MaxScore: rng.Intn(101), N95: n95, N90: n90, N80: n80, TopHitPos: top}
		var hits []core.RankedHit
		for j := 0; j < rng.Intn(4); j++ {
			hits = append(hits, core.RankedHit{Text: "x", Position: 1 + rng.Intn(30)})
		}

		scores := []core.ComponentScore{
			ScoreAppStore(core.ComponentAppStoreA, stats, hits, weight, penalties.AppStoreA),
			ScoreAppStore(core.ComponentAppStoreB, stats, hits, weight, penalties.AppStoreB),
			ScoreSearchRank(stats, hits, weight, penalties.Search),
			ScoreDomain(core.DomainResult{Available: core.Availability(rng.Intn(3))}, weight, rng.Float64()),
			Neutral(core.ComponentDomain, weight, "x"),
		}
		for _, cs := range scores {
			require.GreaterOrEqual(t, cs.Score, 0)
			require.LessOrEqual(t, cs.Score, weight)
		}
	}
}

func TestSummarizePicksLowestLocaleReason(t *testing.T) {
	reports := []core.LocaleReport{
		{Components: map[core.ComponentName]core.ComponentScore{core.ComponentAppStoreA: {Score: 25, Details: core.Details{"reason": core.String("no near matches")}}}},
		{Components: map[core.ComponentName]core.ComponentScore{core.ComponentAppStoreA: {Score: 17, Details: core.Details{"reason": core.String("match ranked #1")}}}},
	}
	assert.Equal(t, "appstore-a: 17/25 (match ranked #1)", Summarize(core.ComponentAppStoreA, 17, 25, reports))
}

func TestWarningAndVerificationURL(t *testing.T) {
	assert.Equal(t, "Warning [domain]: rdap down", Warning(core.ComponentDomain, "", "rdap down"))
	assert.Equal(t, "Warning [appstore-a] (de): boom", Warning(core.ComponentAppStoreA, "de", "boom"))
	assert.Equal(t, "Search verification URL (en-2840): https://example.com/q", VerificationURL(core.DefaultLocale(), "https://example.com/q"))
}
