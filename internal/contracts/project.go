package contracts

import "time"

// DecisionLabel 스코어링 엔진이 내린 판정
type DecisionLabel string

const (
	DecisionValidated    DecisionLabel = "validated"
	DecisionConditional  DecisionLabel = "conditional"
	DecisionNotValidated DecisionLabel = "not_validated"
)

// DimensionContribution one scoring dimension's signed share of the composite score
type DimensionContribution struct {
	Dimension    string  `json:"dimension"`
	Contribution float64 `json:"contribution"`
}

// Prediction 예측 번들 (외부 스코어링 엔진 산출물, read-only)
type Prediction struct {
	ID               string                  `json:"id"`
	ProjectID        string                  `json:"project_id"`
	CompositeScore   *float64                `json:"composite_score,omitempty"`
	Decision         DecisionLabel           `json:"decision"`
	RiskScore        *float64                `json:"risk_score,omitempty"`         // 0-100
	PredictedCostMid *float64                `json:"predicted_cost_mid,omitempty"` // 면적당 예상 단가 중간값
	Contributions    []DimensionContribution `json:"contributions,omitempty"`
	PredictedAt      time.Time               `json:"predicted_at"`
}

// Outcome 준공 후 입력되는 실제 결과 (프로젝트당 1건, immutable)
type Outcome struct {
	ID                 string    `json:"id"`
	ProjectID          string    `json:"project_id"`
	ActualTotalCost    *float64  `json:"actual_total_cost,omitempty"`
	ActualCostPerM2    *float64  `json:"actual_cost_per_m2,omitempty"`
	DeliveredOnTime    *bool     `json:"delivered_on_time,omitempty"`
	ClientSatisfaction *float64  `json:"client_satisfaction,omitempty"` // 1-10
	ReworkOccurred     *bool     `json:"rework_occurred,omitempty"`
	ReworkCost         *float64  `json:"rework_cost,omitempty"`
	TenderIterations   *int      `json:"tender_iterations,omitempty"`
	RecordedAt         time.Time `json:"recorded_at"`
}

// ActualCost returns the area-normalized cost the prediction is graded against
func (o Outcome) ActualCost() *float64 {
	return o.ActualCostPerM2
}

// Rework reports whether rework was recorded; unknown counts as none
func (o Outcome) Rework() bool {
	return o.ReworkOccurred != nil && *o.ReworkOccurred
}

// OutcomePair joins a project's prediction with its recorded outcome
type OutcomePair struct {
	Prediction Prediction
	Outcome    Outcome
}

// ProjectClassification project metadata used for benchmark grouping
type ProjectClassification struct {
	ProjectID string `json:"project_id"`
	Typology  string `json:"typology"` // e.g. office, residential, school
	Tier      string `json:"tier"`     // e.g. standard, premium
}

// GroupKey returns the "typology/tier" benchmark key
func (c ProjectClassification) GroupKey() string {
	return c.Typology + "/" + c.Tier
}

// ScoreVector dimension name -> dimension score recorded at prediction time
type ScoreVector map[string]float64
