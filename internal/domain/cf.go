package domain

import (
	"fmt"
	"math"
	"sort"
)

// Certainty-factor arithmetic in the MYCIN style. All values live in
// [-1.0, 1.0]: positive is evidence for, negative is evidence against.

// Clamp bounds a certainty factor to [-1, 1].
func Clamp(cf float64) float64 {
	if cf > 1.0 {
		return 1.0
	}
	if cf < -1.0 {
		return -1.0
	}
	return cf
}

// Combine merges two certainty factors for the same conclusion using the
// MYCIN evidence-accumulation formula:
//
//	both >= 0:  a + b*(1-a)
//	both <  0:  a + b*(1+a)
//	mixed:      (a+b) / (1 - min(|a|,|b|)), or 0 when the denominator is 0
func Combine(a, b float64) float64 {
	switch {
	case a >= 0 && b >= 0:
		return Clamp(a + b*(1-a))
	case a < 0 && b < 0:
		return Clamp(a + b*(1+a))
	default:
		denom := 1 - math.Min(math.Abs(a), math.Abs(b))
		if denom == 0 {
			return 0
		}
		return Clamp((a + b) / denom)
	}
}

// CombineAll folds a list of certainty factors left to right.
// An empty list yields 0.
func CombineAll(cfs []float64) float64 {
	if len(cfs) == 0 {
		return 0
	}
	acc := cfs[0]
	for _, cf := range cfs[1:] {
		acc = Combine(acc, cf)
	}
	return Clamp(acc)
}

// Adjust scales a certainty factor by a cross-category impact factor,
// clamping the result. Factors above 1 amplify, below 1 dampen.
func Adjust(base, factor float64) float64 {
	return Clamp(base * factor)
}

// Rank sorts conclusions by certainty descending. The sort is stable:
// equal certainties keep their first-seen order.
func Rank(conclusions []Conclusion) []Conclusion {
	ranked := make([]Conclusion, len(conclusions))
	copy(ranked, conclusions)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CF > ranked[j].CF
	})
	return ranked
}

// SelectBest returns the conclusion with the highest certainty, or nil for
// an empty list. Ties go to the first-seen conclusion.
func SelectBest(conclusions []Conclusion) *Conclusion {
	if len(conclusions) == 0 {
		return nil
	}
	best := conclusions[0]
	for _, c := range conclusions[1:] {
		if c.CF > best.CF {
			best = c
		}
	}
	return &best
}

// ConfidenceLevel is the fixed band vocabulary reported alongside a raw
// certainty factor. The thresholds are contract values, not tunable.
type ConfidenceLevel string

const (
	LevelVeryHigh ConfidenceLevel = "Very High"
	LevelHigh     ConfidenceLevel = "High"
	LevelModerate ConfidenceLevel = "Moderate"
	LevelLow      ConfidenceLevel = "Low"
	LevelVeryLow  ConfidenceLevel = "Very Low"
	LevelNegative ConfidenceLevel = "Negative"
)

// ToConfidenceLevel maps a certainty factor to its contract band.
func ToConfidenceLevel(cf float64) ConfidenceLevel {
	switch {
	case cf >= 0.8:
		return LevelVeryHigh
	case cf >= 0.6:
		return LevelHigh
	case cf >= 0.4:
		return LevelModerate
	case cf >= 0.2:
		return LevelLow
	case cf >= 0:
		return LevelVeryLow
	default:
		return LevelNegative
	}
}

// ToPercentage renders a certainty factor as a whole percentage, e.g. "85%".
// Truncates toward zero; negative factors keep their sign.
func ToPercentage(cf float64) string {
	return fmt.Sprintf("%d%%", int(cf*100))
}
