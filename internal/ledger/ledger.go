package ledger

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/projeval/internal/contracts"
)

// Ledger 정확도 원장 집계기
// ⭐ SSOT: AccuracySnapshot 집계 및 추세 판정
type Ledger struct {
	th  contracts.LedgerThresholds
	log zerolog.Logger
}

// New 기본 임계값으로 원장 생성
func New(log zerolog.Logger) *Ledger {
	return NewWithThresholds(contracts.DefaultLedgerThresholds(), log)
}

// NewWithThresholds 임계값 지정하여 원장 생성
func NewWithThresholds(th contracts.LedgerThresholds, log zerolog.Logger) *Ledger {
	return &Ledger{
		th:  th,
		log: log.With().Str("component", "ledger").Logger(),
	}
}

// Compute rolls comparisons up into one snapshot.
// Empty input yields zero rates and insufficient_data trends.
// The input slice is not modified.
func (l *Ledger) Compute(comparisons []contracts.OutcomeComparison) contracts.AccuracySnapshot {
	snap := contracts.AccuracySnapshot{
		TotalComparisons: len(comparisons),
		CostTrend:        contracts.TrendInsufficientData,
		ScoreTrend:       contracts.TrendInsufficientData,
		RiskTrend:        contracts.TrendInsufficientData,
	}

	for _, c := range comparisons {
		switch c.CostBand {
		case contracts.BandWithin10:
			snap.Within10Count++
		case contracts.BandWithin20:
			snap.Within20Count++
		case contracts.BandOutside20:
			snap.Outside20Count++
		default:
			snap.NoPredictionCount++
		}

		switch c.Grade {
		case contracts.GradeA:
			snap.GradeACount++
		case contracts.GradeB:
			snap.GradeBCount++
		case contracts.GradeC:
			snap.GradeCCount++
		default:
			snap.InsufficientDataCount++
		}
	}

	if mae, ok := meanAbsCostDelta(comparisons); ok {
		snap.MeanAbsCostDeltaPct = contracts.NewFixed4(mae)
	}
	if rate, ok := scoreRate(comparisons); ok {
		snap.ScoreAccuracyRate = contracts.NewFixed4(rate)
	}
	if rate, ok := riskRate(comparisons); ok {
		snap.RiskAccuracyRate = contracts.NewFixed4(rate)
	}
	if graded := snap.GradedCount(); graded > 0 {
		snap.OverallAccuracyPct = contracts.NewFixed4(float64(snap.GradeACount+snap.GradeBCount) * 100 / float64(graded))
	}

	snap.PeriodStart, snap.PeriodEnd = period(comparisons)

	if len(comparisons) >= l.th.MinTrendSample {
		older, newer := splitChronological(comparisons)
		snap.CostTrend = l.costTrend(older, newer)
		snap.ScoreTrend = l.rateTrend(older, newer, scoreRate)
		snap.RiskTrend = l.rateTrend(older, newer, riskRate)
	}

	l.log.Debug().
		Int("total", snap.TotalComparisons).
		Str("overall_pct", snap.OverallAccuracyPct.String()).
		Str("cost_trend", string(snap.CostTrend)).
		Str("score_trend", string(snap.ScoreTrend)).
		Str("risk_trend", string(snap.RiskTrend)).
		Msg("ledger computed")

	return snap
}

// =============================================================================
// Trends
// =============================================================================

// splitChronological sorts ascending by capture time; older gets floor(n/2)
func splitChronological(comparisons []contracts.OutcomeComparison) (older, newer []contracts.OutcomeComparison) {
	sorted := make([]contracts.OutcomeComparison, len(comparisons))
	copy(sorted, comparisons)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CapturedAt.Before(sorted[j].CapturedAt)
	})

	mid := len(sorted) / 2
	return sorted[:mid], sorted[mid:]
}

// rateTrend newer vs older correct-rate, ±RateDelta band is stable
func (l *Ledger) rateTrend(older, newer []contracts.OutcomeComparison, rate func([]contracts.OutcomeComparison) (float64, bool)) contracts.TrendDirection {
	oldRate, okOld := rate(older)
	newRate, okNew := rate(newer)
	if !okOld || !okNew {
		return contracts.TrendInsufficientData
	}

	diff := contracts.Round(newRate-oldRate, 4)
	switch {
	case diff > l.th.RateDelta:
		return contracts.TrendImproving
	case diff < -l.th.RateDelta:
		return contracts.TrendDegrading
	default:
		return contracts.TrendStable
	}
}

// costTrend lower MAE is better; a change of CostMAEDelta points or more counts
func (l *Ledger) costTrend(older, newer []contracts.OutcomeComparison) contracts.TrendDirection {
	oldMAE, okOld := meanAbsCostDelta(older)
	newMAE, okNew := meanAbsCostDelta(newer)
	if !okOld || !okNew {
		return contracts.TrendInsufficientData
	}

	improvement := contracts.Round(oldMAE-newMAE, 4)
	switch {
	case improvement >= l.th.CostMAEDelta:
		return contracts.TrendImproving
	case improvement <= -l.th.CostMAEDelta:
		return contracts.TrendDegrading
	default:
		return contracts.TrendStable
	}
}

// =============================================================================
// Rates
// =============================================================================

func meanAbsCostDelta(comparisons []contracts.OutcomeComparison) (float64, bool) {
	var sum float64
	n := 0
	for _, c := range comparisons {
		if !c.HasCostDelta() {
			continue
		}
		sum += c.AbsCostDelta()
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// scoreRate every comparison carries a score verdict
func scoreRate(comparisons []contracts.OutcomeComparison) (float64, bool) {
	if len(comparisons) == 0 {
		return 0, false
	}
	correct := 0
	for _, c := range comparisons {
		if c.ScorePredictionCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(comparisons)), true
}

// riskRate only comparisons with a predicted risk score are evaluable
func riskRate(comparisons []contracts.OutcomeComparison) (float64, bool) {
	correct, total := 0, 0
	for _, c := range comparisons {
		if !c.HasRiskPrediction() {
			continue
		}
		total++
		if c.RiskPredictionCorrect {
			correct++
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(correct) / float64(total), true
}

func period(comparisons []contracts.OutcomeComparison) (*time.Time, *time.Time) {
	var start, end *time.Time
	for i := range comparisons {
		t := comparisons[i].CapturedAt
		if t.IsZero() {
			continue
		}
		if start == nil || t.Before(*start) {
			s := t
			start = &s
		}
		if end == nil || t.After(*end) {
			e := t
			end = &e
		}
	}
	return start, end
}
