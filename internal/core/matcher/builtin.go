package matcher

import "math"

// Builtin needs no third-party code: a Ratcliff/Obershelp ratio over normalized
// strings, boosted to 90 on compact containment and to 88 when the sorted tokens
// agree.
type Builtin struct{}

// NewBuiltin returns the standard-library engine.
func NewBuiltin() *Builtin { return &Builtin{} }

func (b *Builtin) Name() string { return "builtin" }

func (b *Builtin) ScorePair(x, y string) int {
	nx, ny := Normalize(x), Normalize(y)
	if nx == ny {
		return 100
	}
	if nx == "" || ny == "" {
		return 0
	}
	// Longest-block tie breaking depends on argument order; fix it.
	if nx > ny {
		nx, ny = ny, nx
	}

	score := int(math.Round(gestaltRatio([]rune(nx), []rune(ny)) * 100))
	if score < 90 && compactContains(nx, ny) {
		score = 90
	}
	if score < 88 && sortedTokens(nx) == sortedTokens(ny) {
		score = 88
	}
	return score
}

// gestaltRatio returns 2*M/T where M is the number of characters in the recursively
// found longest common blocks.
func gestaltRatio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingChars(a, b)) / float64(total)
}

func matchingChars(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	i, j, size := longestBlock(a, b)
	if size == 0 {
		return 0
	}
	return size + matchingChars(a[:i], b[:j]) + matchingChars(a[i+size:], b[j+size:])
}

// longestBlock finds the earliest longest common substring of a and b.
func longestBlock(a, b []rune) (int, int, int) {
	bestI, bestJ, bestSize := 0, 0, 0
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > bestSize {
					bestSize = curr[j]
					bestI = i - curr[j]
					bestJ = j - curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return bestI, bestJ, bestSize
}
