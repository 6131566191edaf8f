package outcome

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/wonny/projeval/internal/contracts"
)

// =============================================================================
// Outcome Comparator
// =============================================================================

// Comparator 예측 vs 실제 결과 비교기
// ⭐ SSOT: 원가 구간, 등급, learning signal 판정 로직
// Compare는 입력만으로 결정되는 순수 함수이며 동시 호출에 안전함
type Comparator struct {
	th  contracts.ComparatorThresholds
	log zerolog.Logger
}

// NewComparator 기본 임계값으로 비교기 생성
func NewComparator(log zerolog.Logger) *Comparator {
	return NewComparatorWithThresholds(contracts.DefaultComparatorThresholds(), log)
}

// NewComparatorWithThresholds 임계값 지정하여 비교기 생성
func NewComparatorWithThresholds(th contracts.ComparatorThresholds, log zerolog.Logger) *Comparator {
	return &Comparator{
		th:  th,
		log: log.With().Str("component", "outcome.comparator").Logger(),
	}
}

// Compare grades one prediction against its outcome.
// Missing fields degrade the result (no_prediction, insufficient_data) and never fail.
func (c *Comparator) Compare(pred contracts.Prediction, out contracts.Outcome) contracts.OutcomeComparison {
	projectID := out.ProjectID
	if projectID == "" {
		projectID = pred.ProjectID
	}

	cmp := contracts.OutcomeComparison{
		ProjectID:         projectID,
		PredictionID:      pred.ID,
		OutcomeID:         out.ID,
		PredictedCost:     copyFloat(pred.PredictedCostMid),
		ActualCost:        copyFloat(out.ActualCost()),
		PredictedDecision: pred.Decision,
		PredictedSuccess:  pred.Decision == contracts.DecisionValidated,
		PredictedRisk:     copyFloat(pred.RiskScore),
		ActualRework:      out.Rework(),
		CapturedAt:        out.RecordedAt,
	}

	// 1. Cost
	cmp.CostBand, cmp.CostDeltaPct = c.costAccuracy(pred.PredictedCostMid, out.ActualCost())

	// 2. Score
	failed := c.failedCriteria(out)
	cmp.ActualSuccess = failed == 0
	cmp.ScorePredictionCorrect = scoreCorrect(pred.Decision, failed)

	// 3. Risk
	cmp.RiskPredictionCorrect = c.riskCorrect(pred.RiskScore, cmp.ActualRework)

	// 4. Grade + signals
	cmp.Grade = grade(cmp)
	cmp.Signals = c.extractSignals(cmp)

	return cmp
}

// CompareAll compares every pair, preserving input order
func (c *Comparator) CompareAll(pairs []contracts.OutcomePair) []contracts.OutcomeComparison {
	results := make([]contracts.OutcomeComparison, 0, len(pairs))
	grades := make(map[contracts.AccuracyGrade]int)

	for _, p := range pairs {
		cmp := c.Compare(p.Prediction, p.Outcome)
		grades[cmp.Grade]++
		results = append(results, cmp)
	}

	c.log.Debug().
		Int("pairs", len(pairs)).
		Int("grade_a", grades[contracts.GradeA]).
		Int("grade_b", grades[contracts.GradeB]).
		Int("grade_c", grades[contracts.GradeC]).
		Int("insufficient", grades[contracts.GradeInsufficientData]).
		Msg("comparisons graded")

	return results
}

// =============================================================================
// Facets
// =============================================================================

// costAccuracy bands |deltaPct|; boundaries are inclusive (10.0 → within_10pct)
func (c *Comparator) costAccuracy(predicted, actual *float64) (contracts.CostAccuracyBand, *float64) {
	if predicted == nil || actual == nil || !finite(*predicted) || !finite(*actual) || *predicted <= 0 {
		return contracts.BandNoPrediction, nil
	}

	// 4자리 반올림: 부동소수 오차로 경계값(10.0, 20.0)이 밀리지 않도록
	delta := contracts.Round((*actual-*predicted)*100 / *predicted, 4)
	abs := math.Abs(delta)

	switch {
	case abs <= c.th.Within10Pct:
		return contracts.BandWithin10, &delta
	case abs <= c.th.Within20Pct:
		return contracts.BandWithin20, &delta
	default:
		return contracts.BandOutside20, &delta
	}
}

// failedCriteria counts unmet success criteria: late, unsatisfied, rework.
// Unknown delivery or satisfaction counts as unmet; unknown rework counts as none.
func (c *Comparator) failedCriteria(out contracts.Outcome) int {
	failed := 0
	if out.DeliveredOnTime == nil || !*out.DeliveredOnTime {
		failed++
	}
	if out.ClientSatisfaction == nil || *out.ClientSatisfaction < c.th.SatisfactionMin {
		failed++
	}
	if out.Rework() {
		failed++
	}
	return failed
}

// scoreCorrect validated ↔ clean success, not_validated ↔ any failure,
// conditional ↔ mixed outcome (neither clean success nor all three criteria failed)
func scoreCorrect(decision contracts.DecisionLabel, failed int) bool {
	switch decision {
	case contracts.DecisionValidated:
		return failed == 0
	case contracts.DecisionNotValidated:
		return failed > 0
	case contracts.DecisionConditional:
		return failed > 0 && failed < 3
	default:
		return false
	}
}

func (c *Comparator) riskCorrect(risk *float64, rework bool) bool {
	if risk == nil {
		return false
	}
	high := *risk >= c.th.RiskThreshold
	return (high && rework) || (!high && !rework)
}

func grade(cmp contracts.OutcomeComparison) contracts.AccuracyGrade {
	if cmp.CostBand == contracts.BandNoPrediction || cmp.ActualCost == nil {
		return contracts.GradeInsufficientData
	}

	switch {
	case cmp.CostBand == contracts.BandWithin10 && cmp.ScorePredictionCorrect && cmp.RiskPredictionCorrect:
		return contracts.GradeA
	case (cmp.CostBand == contracts.BandWithin10 || cmp.CostBand == contracts.BandWithin20) &&
		(cmp.ScorePredictionCorrect || cmp.RiskPredictionCorrect):
		return contracts.GradeB
	default:
		return contracts.GradeC
	}
}

// =============================================================================
// Signals
// =============================================================================

// extractSignals emits cost, then risk, then score signals.
// signals[0] is read as primary downstream.
func (c *Comparator) extractSignals(cmp contracts.OutcomeComparison) []contracts.LearningSignal {
	signals := []contracts.LearningSignal{}
	if cmp.Grade == contracts.GradeInsufficientData {
		return signals
	}

	if cmp.CostDeltaPct != nil && math.Abs(*cmp.CostDeltaPct) > c.th.CostNoisePct {
		delta := *cmp.CostDeltaPct
		if delta > 0 {
			signals = append(signals, contracts.LearningSignal{
				Type:      contracts.SignalCostUnderPredicted,
				Magnitude: delta,
				Direction: contracts.DirectionIncrease,
			})
		} else {
			signals = append(signals, contracts.LearningSignal{
				Type:      contracts.SignalCostOverPredicted,
				Magnitude: -delta,
				Direction: contracts.DirectionDecrease,
			})
		}
	}

	if cmp.PredictedRisk != nil {
		risk := *cmp.PredictedRisk
		switch {
		case cmp.ActualRework && risk < c.th.RiskThreshold:
			signals = append(signals, contracts.LearningSignal{
				Type:      contracts.SignalRiskUnderPredicted,
				Magnitude: contracts.Round(c.th.RiskThreshold-risk, 4),
				Direction: contracts.DirectionIncrease,
			})
		case !cmp.ActualRework && risk >= c.th.RiskThreshold:
			signals = append(signals, contracts.LearningSignal{
				Type:      contracts.SignalRiskOverPredicted,
				Magnitude: contracts.Round(risk-c.th.RiskThreshold, 4),
				Direction: contracts.DirectionDecrease,
			})
		}
	}

	if cmp.ScorePredictionCorrect {
		signals = append(signals, contracts.LearningSignal{
			Type:      contracts.SignalScoreCorrectlyPredicted,
			Magnitude: 1,
			Direction: contracts.DirectionNone,
		})
	} else {
		signals = append(signals, contracts.LearningSignal{
			Type:      contracts.SignalScoreIncorrectly,
			Magnitude: 1,
			Direction: scoreMissDirection(cmp),
		})
	}

	return signals
}

// scoreMissDirection too pessimistic → increase, too optimistic → decrease
func scoreMissDirection(cmp contracts.OutcomeComparison) contracts.AdjustmentDirection {
	switch {
	case cmp.PredictedDecision == contracts.DecisionNotValidated && cmp.ActualSuccess:
		return contracts.DirectionIncrease
	case cmp.PredictedDecision == contracts.DecisionValidated && !cmp.ActualSuccess:
		return contracts.DirectionDecrease
	default:
		return contracts.DirectionNone
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
