package calibration

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/wonny/projeval/internal/contracts"
)

// =============================================================================
// Benchmark Calibrator
// =============================================================================

// Calibrator (typology, tier) 그룹별 벤치마크 보정 제안 생성기
// ⭐ SSOT: 지배 규칙(dominance rule), 상한, 신뢰도 계층
type Calibrator struct {
	th  contracts.CalibrationThresholds
	log zerolog.Logger
}

// NewCalibrator 기본 임계값으로 보정기 생성
func NewCalibrator(log zerolog.Logger) *Calibrator {
	return NewCalibratorWithThresholds(contracts.DefaultCalibrationThresholds(), log)
}

// NewCalibratorWithThresholds 임계값 지정하여 보정기 생성
func NewCalibratorWithThresholds(th contracts.CalibrationThresholds, log zerolog.Logger) *Calibrator {
	return &Calibrator{
		th:  th,
		log: log.With().Str("component", "calibration.benchmark").Logger(),
	}
}

// signalTally count and summed magnitude of one signal type
type signalTally struct {
	count int
	sum   float64
}

func (t signalTally) mean() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}

type group struct {
	typology    string
	tier        string
	comparisons []contracts.OutcomeComparison
}

// GenerateSuggestions groups comparisons by their project's (typology, tier)
// and proposes cost/risk benchmark adjustments. Output is ordered by group key.
// Comparisons without a classification are ignored.
func (c *Calibrator) GenerateSuggestions(
	comparisons []contracts.OutcomeComparison,
	classifications map[string]contracts.ProjectClassification,
) []contracts.BenchmarkSuggestion {
	groups := make(map[string]*group)
	unclassified := 0

	for _, cmp := range comparisons {
		cls, ok := classifications[cmp.ProjectID]
		if !ok {
			unclassified++
			continue
		}
		key := cls.GroupKey()
		g, exists := groups[key]
		if !exists {
			g = &group{typology: cls.Typology, tier: cls.Tier}
			groups[key] = g
		}
		g.comparisons = append(g.comparisons, cmp)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var suggestions []contracts.BenchmarkSuggestion
	dropped := 0
	for _, k := range keys {
		g := groups[k]
		if len(g.comparisons) < c.th.MinGroupSize {
			dropped++
			continue
		}
		if s, ok := c.suggestForGroup(g); ok {
			suggestions = append(suggestions, s)
		}
	}

	c.log.Debug().
		Int("groups", len(groups)).
		Int("dropped_small", dropped).
		Int("unclassified", unclassified).
		Int("suggestions", len(suggestions)).
		Msg("benchmark calibration completed")

	return suggestions
}

func (c *Calibrator) suggestForGroup(g *group) (contracts.BenchmarkSuggestion, bool) {
	tallies := make(map[contracts.SignalType]signalTally)
	for _, cmp := range g.comparisons {
		for _, s := range cmp.Signals {
			t := tallies[s.Type]
			t.count++
			t.sum += s.Magnitude
			tallies[s.Type] = t
		}
	}

	var changes contracts.SuggestedChanges
	var reasons []string
	dominantCount := 0

	under := tallies[contracts.SignalCostUnderPredicted]
	over := tallies[contracts.SignalCostOverPredicted]
	switch {
	case c.dominates(under, over):
		changes.Cost = c.costAdjustment(under, contracts.DirectionIncrease)
		dominantCount = max(dominantCount, under.count)
		reasons = append(reasons, fmt.Sprintf("%d of %d projects cost more than predicted (mean %+.1f%%)",
			under.count, len(g.comparisons), under.mean()))
	case c.dominates(over, under):
		changes.Cost = c.costAdjustment(over, contracts.DirectionDecrease)
		dominantCount = max(dominantCount, over.count)
		reasons = append(reasons, fmt.Sprintf("%d of %d projects cost less than predicted (mean %+.1f%%)",
			over.count, len(g.comparisons), -over.mean()))
	}

	riskUnder := tallies[contracts.SignalRiskUnderPredicted]
	riskOver := tallies[contracts.SignalRiskOverPredicted]
	switch {
	case c.dominates(riskUnder, riskOver):
		changes.Risk = &contracts.RiskAdjustment{
			MultiplierDelta: c.th.RiskIncreaseDelta,
			SignalCount:     riskUnder.count,
			Direction:       contracts.DirectionIncrease,
		}
		dominantCount = max(dominantCount, riskUnder.count)
		reasons = append(reasons, fmt.Sprintf("%d projects needed rework despite low predicted risk", riskUnder.count))
	case c.dominates(riskOver, riskUnder):
		changes.Risk = &contracts.RiskAdjustment{
			MultiplierDelta: c.th.RiskDecreaseDelta,
			SignalCount:     riskOver.count,
			Direction:       contracts.DirectionDecrease,
		}
		dominantCount = max(dominantCount, riskOver.count)
		reasons = append(reasons, fmt.Sprintf("%d high-risk projects finished without rework", riskOver.count))
	}

	if changes.IsEmpty() {
		return contracts.BenchmarkSuggestion{}, false
	}

	var confidence float64
	switch {
	case dominantCount >= c.th.HighConfidenceCount:
		confidence = c.th.HighConfidence
	case dominantCount >= c.th.MinDominantCount:
		confidence = c.th.StandardConfidence
	default:
		// the dominance floor already guarantees MinDominantCount
		return contracts.BenchmarkSuggestion{}, false
	}

	return contracts.BenchmarkSuggestion{
		Typology:   g.typology,
		Tier:       g.tier,
		Changes:    changes,
		Confidence: contracts.NewFixed4(confidence),
		SampleSize: len(g.comparisons),
		Status:     contracts.SuggestionPending,
		Rationale:  rationale(g, changes, reasons),
	}, true
}

// dominates count ≥ floor AND strictly more than DominanceRatio × opposing count
func (c *Calibrator) dominates(a, b signalTally) bool {
	return a.count >= c.th.MinDominantCount && float64(a.count) > c.th.DominanceRatio*float64(b.count)
}

// costAdjustment mean magnitude of the dominant signals, capped at ±MaxCostChangePct
func (c *Calibrator) costAdjustment(t signalTally, dir contracts.AdjustmentDirection) *contracts.CostAdjustment {
	mean := contracts.Round(t.mean(), 4)
	change := math.Min(mean, c.th.MaxCostChangePct)
	if dir == contracts.DirectionDecrease {
		mean, change = -mean, -change
	}
	return &contracts.CostAdjustment{
		ChangePct:   change,
		RawDriftPct: mean,
		SignalCount: t.count,
		Direction:   dir,
	}
}

func rationale(g *group, changes contracts.SuggestedChanges, reasons []string) string {
	msg := fmt.Sprintf("%s/%s (n=%d): ", g.typology, g.tier, len(g.comparisons))
	for i, r := range reasons {
		if i > 0 {
			msg += "; "
		}
		msg += r
	}
	if changes.Cost != nil {
		msg += fmt.Sprintf(". Proposed cost benchmark change %s", changes.Cost.Display())
		if changes.Cost.ChangePct != changes.Cost.RawDriftPct {
			msg += " (capped)"
		}
	}
	if changes.Risk != nil {
		msg += fmt.Sprintf(". Proposed risk multiplier %s", changes.Risk.Display())
	}
	return msg
}
