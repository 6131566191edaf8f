package contracts

import (
	"math"
	"time"
)

// CostAccuracyBand 원가 예측 오차 구간
type CostAccuracyBand string

const (
	BandWithin10     CostAccuracyBand = "within_10pct"
	BandWithin20     CostAccuracyBand = "within_20pct"
	BandOutside20    CostAccuracyBand = "outside_20pct"
	BandNoPrediction CostAccuracyBand = "no_prediction"
)

// AccuracyGrade overall grade of one comparison
type AccuracyGrade string

const (
	GradeA                AccuracyGrade = "A"
	GradeB                AccuracyGrade = "B"
	GradeC                AccuracyGrade = "C"
	GradeInsufficientData AccuracyGrade = "insufficient_data"
)

// SignalType learning signal tag
type SignalType string

const (
	SignalCostUnderPredicted      SignalType = "cost_under_predicted"
	SignalCostOverPredicted       SignalType = "cost_over_predicted"
	SignalRiskUnderPredicted      SignalType = "risk_under_predicted"
	SignalRiskOverPredicted       SignalType = "risk_over_predicted"
	SignalScoreCorrectlyPredicted SignalType = "score_correctly_predicted"
	SignalScoreIncorrectly        SignalType = "score_incorrectly_predicted"
)

// AdjustmentDirection suggested direction for the parameter a signal points at
type AdjustmentDirection string

const (
	DirectionIncrease AdjustmentDirection = "increase"
	DirectionDecrease AdjustmentDirection = "decrease"
	DirectionNone     AdjustmentDirection = "none"
)

// LearningSignal append-only evidence extracted from one comparison
type LearningSignal struct {
	Type      SignalType          `json:"type"`
	Magnitude float64             `json:"magnitude"`
	Direction AdjustmentDirection `json:"direction"`
}

// OutcomeComparison 예측 vs 실제 비교 결과
// ⭐ SSOT: Grade는 CostBand/ScorePredictionCorrect/RiskPredictionCorrect의 결정적 함수
type OutcomeComparison struct {
	ID           string `json:"id"`
	ProjectID    string `json:"project_id"`
	PredictionID string `json:"prediction_id"`
	OutcomeID    string `json:"outcome_id"`

	// Cost facet
	PredictedCost *float64         `json:"predicted_cost,omitempty"`
	ActualCost    *float64         `json:"actual_cost,omitempty"`
	CostDeltaPct  *float64         `json:"cost_delta_pct,omitempty"` // (actual-predicted)/predicted*100
	CostBand      CostAccuracyBand `json:"cost_band"`

	// Score facet
	PredictedDecision      DecisionLabel `json:"predicted_decision"`
	PredictedSuccess       bool          `json:"predicted_success"`
	ActualSuccess          bool          `json:"actual_success"`
	ScorePredictionCorrect bool          `json:"score_prediction_correct"`

	// Risk facet
	PredictedRisk         *float64 `json:"predicted_risk,omitempty"`
	ActualRework          bool     `json:"actual_rework"`
	RiskPredictionCorrect bool     `json:"risk_prediction_correct"`

	Grade   AccuracyGrade    `json:"grade"`
	Signals []LearningSignal `json:"signals"`

	// CapturedAt 실제 결과 기록 시점 (추세 계산 정렬 키)
	CapturedAt time.Time `json:"captured_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasCostDelta reports whether the cost facet could be evaluated
func (c OutcomeComparison) HasCostDelta() bool {
	return c.CostDeltaPct != nil && c.CostBand != BandNoPrediction
}

// AbsCostDelta returns |deltaPct|, zero when unknown
func (c OutcomeComparison) AbsCostDelta() float64 {
	if c.CostDeltaPct == nil {
		return 0
	}
	return math.Abs(*c.CostDeltaPct)
}

// HasRiskPrediction reports whether the risk facet could be evaluated
func (c OutcomeComparison) HasRiskPrediction() bool {
	return c.PredictedRisk != nil
}

// SignalsOf returns the signals of one type in original order
func (c OutcomeComparison) SignalsOf(t SignalType) []LearningSignal {
	var out []LearningSignal
	for _, s := range c.Signals {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

// PrimarySignal returns signals[0], the one dashboards show first
func (c OutcomeComparison) PrimarySignal() (LearningSignal, bool) {
	if len(c.Signals) == 0 {
		return LearningSignal{}, false
	}
	return c.Signals[0], true
}
