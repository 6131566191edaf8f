package patterns

import (
	"math"

	"github.com/wonny/projeval/internal/contracts"
)

// equalEpsilon tolerance for "==" on float scores
const equalEpsilon = 1e-9

// MatchPatterns returns every pattern whose conditions all hold against the
// vector, in library order. A dimension missing from the vector fails its
// condition. Safe for concurrent use.
func MatchPatterns(vector contracts.ScoreVector, library []contracts.DecisionPattern) []contracts.DecisionPattern {
	var matched []contracts.DecisionPattern
	for _, p := range library {
		if Matches(vector, p) {
			matched = append(matched, p)
		}
	}
	return matched
}

// Matches reports whether one pattern holds; a pattern with no conditions never matches
func Matches(vector contracts.ScoreVector, p contracts.DecisionPattern) bool {
	if len(p.Conditions) == 0 {
		return false
	}
	for _, c := range p.Conditions {
		if !holds(vector, c) {
			return false
		}
	}
	return true
}

func holds(vector contracts.ScoreVector, c contracts.PatternCondition) bool {
	v, ok := vector[c.Dimension]
	if !ok || math.IsNaN(v) {
		return false
	}

	switch c.Op {
	case contracts.OpLess:
		return v < c.Threshold
	case contracts.OpGreater:
		return v > c.Threshold
	case contracts.OpLessEqual:
		return v <= c.Threshold
	case contracts.OpGreaterEqual:
		return v >= c.Threshold
	case contracts.OpEqual:
		return math.Abs(v-c.Threshold) <= equalEpsilon
	default:
		return false
	}
}
