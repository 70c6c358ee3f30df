package scoring

import "github.com/brandlens/brandlens/internal/core"

// Bin maps a total score to a grade. Totals outside 0-100 use the same comparisons.
func Bin(total int, t core.Thresholds) core.Grade {
	switch {
	case total >= t.Distinct:
		return core.GradeDistinct
	case total >= t.Likely:
		return core.GradeLikelyUnique
	case total >= t.Border:
		return core.GradeBorderline
	default:
		return core.GradeColliding
	}
}
