package contracts

import "time"

// TrendDirection 정확도 추세
type TrendDirection string

const (
	TrendImproving        TrendDirection = "improving"
	TrendStable           TrendDirection = "stable"
	TrendDegrading        TrendDirection = "degrading"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// AccuracySnapshot 정확도 원장 항목 (실행당 1건, immutable)
type AccuracySnapshot struct {
	ID string `json:"id"`

	TotalComparisons int `json:"total_comparisons"`

	// Cost band tallies
	Within10Count     int `json:"within_10pct_count"`
	Within20Count     int `json:"within_20pct_count"`
	Outside20Count    int `json:"outside_20pct_count"`
	NoPredictionCount int `json:"no_prediction_count"`

	// Grade tallies
	GradeACount           int `json:"grade_a_count"`
	GradeBCount           int `json:"grade_b_count"`
	GradeCCount           int `json:"grade_c_count"`
	InsufficientDataCount int `json:"insufficient_data_count"`

	MeanAbsCostDeltaPct Fixed4 `json:"mean_abs_cost_delta_pct"`
	ScoreAccuracyRate   Fixed4 `json:"score_accuracy_rate"` // 0-1
	RiskAccuracyRate    Fixed4 `json:"risk_accuracy_rate"`  // 0-1
	OverallAccuracyPct  Fixed4 `json:"overall_accuracy_pct"`

	CostTrend  TrendDirection `json:"cost_trend"`
	ScoreTrend TrendDirection `json:"score_trend"`
	RiskTrend  TrendDirection `json:"risk_trend"`

	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// GradedCount comparisons that received A, B or C
func (s AccuracySnapshot) GradedCount() int {
	return s.GradeACount + s.GradeBCount + s.GradeCCount
}
