package patterns

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wonny/projeval/internal/contracts"
)

// costAnomalyMinDeltaPct actual cost must exceed the prediction by more than this
const costAnomalyMinDeltaPct = 10.0

// Extractor 구조적 매치를 실제 결과로 검증한 뒤에만 기록
type Extractor struct {
	log zerolog.Logger
}

// NewExtractor 새 추출기 생성
func NewExtractor(log zerolog.Logger) *Extractor {
	return &Extractor{
		log: log.With().Str("component", "patterns.extractor").Logger(),
	}
}

// ExtractValidatedMatches runs MatchPatterns for every comparison whose project
// has a score vector and keeps only matches the actual outcome backs up.
// Each (project, pattern) pair appears at most once in the result.
func (e *Extractor) ExtractValidatedMatches(
	comparisons []contracts.OutcomeComparison,
	vectors map[string]contracts.ScoreVector,
	library []contracts.DecisionPattern,
) []contracts.ProjectPatternMatch {
	var matches []contracts.ProjectPatternMatch
	seen := make(map[string]struct{})
	structural, discarded, noVector := 0, 0, 0

	for _, cmp := range comparisons {
		vector, ok := vectors[cmp.ProjectID]
		if !ok {
			noVector++
			continue
		}

		for _, p := range MatchPatterns(vector, library) {
			structural++

			evidence, ok := validate(p.Category, cmp)
			if !ok {
				discarded++
				continue
			}

			m := contracts.ProjectPatternMatch{
				ProjectID:      cmp.ProjectID,
				PatternID:      p.ID,
				PatternName:    p.Name,
				PatternVersion: p.Version,
				Category:       p.Category,
				ComparisonID:   cmp.ID,
				Evidence:       evidence,
			}
			if _, dup := seen[m.DedupKey()]; dup {
				continue
			}
			seen[m.DedupKey()] = struct{}{}
			matches = append(matches, m)
		}
	}

	e.log.Debug().
		Int("comparisons", len(comparisons)).
		Int("no_vector", noVector).
		Int("structural", structural).
		Int("discarded", discarded).
		Int("validated", len(matches)).
		Msg("pattern extraction completed")

	return matches
}

// ExcludeRecorded drops matches whose (project, pattern) pair is already stored
func ExcludeRecorded(matches []contracts.ProjectPatternMatch, recorded map[string]struct{}) []contracts.ProjectPatternMatch {
	if len(recorded) == 0 {
		return matches
	}
	out := make([]contracts.ProjectPatternMatch, 0, len(matches))
	for _, m := range matches {
		if _, ok := recorded[m.DedupKey()]; ok {
			continue
		}
		out = append(out, m)
	}
	return out
}

// validate returns the outcome evidence behind a structural match
func validate(category contracts.PatternCategory, cmp contracts.OutcomeComparison) (string, bool) {
	switch category {
	case contracts.PatternRiskIndicator:
		if !cmp.ActualRework && cmp.ActualSuccess {
			return "", false
		}
		var facts []string
		if cmp.ActualRework {
			facts = append(facts, "rework occurred")
		}
		if !cmp.ActualSuccess {
			facts = append(facts, "project did not meet success criteria")
		}
		return strings.Join(facts, "; "), true

	case contracts.PatternSuccessDriver:
		if !cmp.ActualSuccess || cmp.ActualRework {
			return "", false
		}
		return "delivered on time, client satisfied, no rework", true

	case contracts.PatternCostAnomaly:
		if cmp.CostDeltaPct == nil || *cmp.CostDeltaPct <= costAnomalyMinDeltaPct {
			return "", false
		}
		return fmt.Sprintf("actual cost %+.1f%% over prediction", *cmp.CostDeltaPct), true

	default:
		return "", false
	}
}
