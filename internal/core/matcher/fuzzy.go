package matcher

import (
	"math"
	"strings"

	"github.com/adrg/strutil/metrics"
)

// Fast is the token-aware weighted-ratio engine. Its base ratio is the indel
// similarity 1 - d/(len(a)+len(b)), computed as a Levenshtein distance where a
// substitution costs as much as a deletion plus an insertion.
type Fast struct {
	indel *metrics.Levenshtein
}

// NewFast returns the weighted-ratio engine.
func NewFast() *Fast {
	m := metrics.NewLevenshtein()
	m.CaseSensitive = false
	m.InsertCost = 1
	m.DeleteCost = 1
	m.ReplaceCost = 2
	return &Fast{indel: m}
}

func (f *Fast) Name() string { return "fast" }

func (f *Fast) ScorePair(a, b string) int {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 100
	}
	if na == "" || nb == "" {
		return 0
	}
	return int(math.Round(f.weightedRatio(na, nb)))
}

func (f *Fast) weightedRatio(a, b string) float64 {
	const unbaseScale = 0.95

	best := f.ratio(a, b)
	la, lb := runeLen(a), runeLen(b)
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))

	if lenRatio < 1.5 {
		best = math.Max(best, f.ratio(sortedTokens(a), sortedTokens(b))*unbaseScale)
		best = math.Max(best, f.tokenSetRatio(a, b)*unbaseScale)
		return best
	}

	partialScale := 0.9
	if lenRatio > 8 {
		partialScale = 0.6
	}
	best = math.Max(best, f.partialRatio(a, b)*partialScale)
	best = math.Max(best, f.partialRatio(sortedTokens(a), sortedTokens(b))*unbaseScale*partialScale)
	best = math.Max(best, f.partialTokenSetRatio(a, b)*unbaseScale*partialScale)
	return best
}

func (f *Fast) ratio(a, b string) float64 {
	total := runeLen(a) + runeLen(b)
	if total == 0 {
		return 100
	}
	d := f.indel.Distance(a, b)
	return 100 * (1 - float64(d)/float64(total))
}

// partialRatio is the best ratio of the shorter string against every window of the
// longer one.
func (f *Fast) partialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	s := string(short)
	best := 0.0
	for start := 0; start+len(short) <= len(long); start++ {
		r := f.ratio(s, string(long[start:start+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func (f *Fast) tokenSetRatio(a, b string) float64 {
	sect, diffA, diffB := tokenSets(a, b)
	combinedA := strings.TrimSpace(sect + " " + diffA)
	combinedB := strings.TrimSpace(sect + " " + diffB)

	best := f.ratio(combinedA, combinedB)
	if sect != "" {
		best = math.Max(best, f.ratio(sect, combinedA))
		best = math.Max(best, f.ratio(sect, combinedB))
	}
	return best
}

func (f *Fast) partialTokenSetRatio(a, b string) float64 {
	sect, diffA, diffB := tokenSets(a, b)
	if sect != "" {
		return 100
	}
	return f.partialRatio(diffA, diffB)
}

// tokenSets returns the sorted intersection and the sorted per-side differences.
func tokenSets(a, b string) (string, string, string) {
	setA := make(map[string]bool)
	for _, t := range tokens(a) {
		setA[t] = true
	}
	setB := make(map[string]bool)
	for _, t := range tokens(b) {
		setB[t] = true
	}

	var sect, diffA, diffB []string
	for t := range setA {
		if setB[t] {
			sect = append(sect, t)
		} else {
			diffA = append(diffA, t)
		}
	}
	for t := range setB {
		if !setA[t] {
			diffB = append(diffB, t)
		}
	}
	return joinSorted(sect), joinSorted(diffA), joinSorted(diffB)
}

func joinSorted(parts []string) string {
	return sortedTokens(strings.Join(parts, " "))
}

func runeLen(s string) int {
	return len([]rune(s))
}
