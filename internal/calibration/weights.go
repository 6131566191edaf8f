package calibration

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/wonny/projeval/internal/contracts"
)

// =============================================================================
// Weight Sensitivity Analyzer
// =============================================================================

// WeightAnalyzer 오판(miss)을 주도한 스코어링 차원을 찾아 가중치 변경 제안 생성
// 제안은 항상 proposed 상태로만 생성됨 (운영 가중치는 직접 변경하지 않음)
type WeightAnalyzer struct {
	th  contracts.WeightThresholds
	log zerolog.Logger
}

// NewWeightAnalyzer 기본 임계값으로 분석기 생성
func NewWeightAnalyzer(log zerolog.Logger) *WeightAnalyzer {
	return NewWeightAnalyzerWithThresholds(contracts.DefaultWeightThresholds(), log)
}

// NewWeightAnalyzerWithThresholds 임계값 지정하여 분석기 생성
func NewWeightAnalyzerWithThresholds(th contracts.WeightThresholds, log zerolog.Logger) *WeightAnalyzer {
	return &WeightAnalyzer{
		th:  th,
		log: log.With().Str("component", "calibration.weights").Logger(),
	}
}

// Analyze tallies the dimension that drove each false negative (most negative
// contribution) and false positive (most positive contribution) and proposes a
// weight change for every dimension that dominates its miss category.
// contributions is keyed by project ID.
func (a *WeightAnalyzer) Analyze(
	comparisons []contracts.OutcomeComparison,
	contributions map[string][]contracts.DimensionContribution,
	logicVersionID string,
) []contracts.WeightChangeProposal {
	var misses []contracts.OutcomeComparison
	for _, c := range comparisons {
		if !c.ScorePredictionCorrect {
			misses = append(misses, c)
		}
	}
	if len(misses) < a.th.MinMisses {
		a.log.Debug().Int("misses", len(misses)).Msg("not enough misses for weight analysis")
		return nil
	}

	tallies := map[contracts.MissKind]map[string]int{
		contracts.MissFalseNegative: {},
		contracts.MissFalsePositive: {},
	}
	totals := map[contracts.MissKind]int{}

	for _, m := range misses {
		kind, ok := classifyMiss(m)
		if !ok {
			continue
		}
		totals[kind]++

		dim, ok := drivingDimension(contributions[m.ProjectID], kind)
		if !ok {
			continue
		}
		tallies[kind][dim]++
	}

	var proposals []contracts.WeightChangeProposal
	for _, kind := range []contracts.MissKind{contracts.MissFalseNegative, contracts.MissFalsePositive} {
		dims := make([]string, 0, len(tallies[kind]))
		for d := range tallies[kind] {
			dims = append(dims, d)
		}
		sort.Strings(dims)

		for _, dim := range dims {
			n := tallies[kind][dim]
			if n < a.th.MinTally {
				continue
			}
			if float64(n)/float64(totals[kind]) <= a.th.DominanceShare {
				continue
			}
			proposals = append(proposals, a.proposal(kind, dim, n, totals[kind], logicVersionID))
		}
	}

	a.log.Debug().
		Int("misses", len(misses)).
		Int("false_negatives", totals[contracts.MissFalseNegative]).
		Int("false_positives", totals[contracts.MissFalsePositive]).
		Int("proposals", len(proposals)).
		Msg("weight analysis completed")

	return proposals
}

func (a *WeightAnalyzer) proposal(kind contracts.MissKind, dim string, n, total int, logicVersionID string) contracts.WeightChangeProposal {
	p := contracts.WeightChangeProposal{
		LogicVersionID: logicVersionID,
		Dimension:      dim,
		MissKind:       kind,
		AdjustmentPct:  a.th.AdjustmentPct,
		Occurrences:    n,
		CategoryTotal:  total,
		Status:         contracts.ChangeProposed,
	}

	if kind == contracts.MissFalseNegative {
		p.Action = contracts.ActionReducePenalty
		p.Rationale = fmt.Sprintf(
			"Reduce penalty weighting for %s by %.0f%%: it was the most negative contribution in %d of %d false negatives (scoring too pessimistic)",
			dim, a.th.AdjustmentPct, n, total)
	} else {
		p.Action = contracts.ActionIncreaseStringency
		p.Rationale = fmt.Sprintf(
			"Increase penalty stringency / reduce weight for %s by %.0f%%: it was the most positive contribution in %d of %d false positives (scoring too lenient)",
			dim, a.th.AdjustmentPct, n, total)
	}
	return p
}

// classifyMiss conditional misses are neither category
func classifyMiss(c contracts.OutcomeComparison) (contracts.MissKind, bool) {
	switch {
	case c.PredictedDecision == contracts.DecisionNotValidated && c.ActualSuccess:
		return contracts.MissFalseNegative, true
	case c.PredictedDecision == contracts.DecisionValidated && !c.ActualSuccess:
		return contracts.MissFalsePositive, true
	default:
		return "", false
	}
}

// drivingDimension most negative (<0) for false negatives, most positive (>0)
// for false positives. Ties resolve to the lexicographically first dimension.
func drivingDimension(contribs []contracts.DimensionContribution, kind contracts.MissKind) (string, bool) {
	best := ""
	var bestVal float64
	found := false

	for _, dc := range contribs {
		v := dc.Contribution
		if kind == contracts.MissFalseNegative {
			v = -v
		}
		if v <= 0 {
			continue
		}
		if !found || v > bestVal || (v == bestVal && dc.Dimension < best) {
			best, bestVal, found = dc.Dimension, v, true
		}
	}
	return best, found
}
