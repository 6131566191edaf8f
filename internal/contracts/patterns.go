package contracts

import "time"

// PatternCategory 의사결정 패턴 분류
type PatternCategory string

const (
	PatternRiskIndicator PatternCategory = "risk_indicator"
	PatternSuccessDriver PatternCategory = "success_driver"
	PatternCostAnomaly   PatternCategory = "cost_anomaly"
)

// ComparisonOp condition operator
type ComparisonOp string

const (
	OpLess         ComparisonOp = "<"
	OpGreater      ComparisonOp = ">"
	OpLessEqual    ComparisonOp = "<="
	OpGreaterEqual ComparisonOp = ">="
	OpEqual        ComparisonOp = "=="
)

// PatternCondition one (dimension, op, threshold) clause
type PatternCondition struct {
	Dimension string       `json:"dimension" yaml:"dimension"`
	Op        ComparisonOp `json:"op" yaml:"op"`
	Threshold float64      `json:"threshold" yaml:"threshold"`
}

// DecisionPattern 조건 conjunction으로 정의되는 named, versioned rule
type DecisionPattern struct {
	ID          string             `json:"id" yaml:"id"`
	Name        string             `json:"name" yaml:"name"`
	Version     int                `json:"version" yaml:"version"`
	Category    PatternCategory    `json:"category" yaml:"category"`
	Description string             `json:"description" yaml:"description"`
	Conditions  []PatternCondition `json:"conditions" yaml:"conditions"`
}

// ProjectPatternMatch outcome-validated pattern match (append-only)
type ProjectPatternMatch struct {
	ID             string          `json:"id"`
	ProjectID      string          `json:"project_id"`
	PatternID      string          `json:"pattern_id"`
	PatternName    string          `json:"pattern_name"`
	PatternVersion int             `json:"pattern_version"`
	Category       PatternCategory `json:"category"`
	ComparisonID   string          `json:"comparison_id"`
	Evidence       string          `json:"evidence"`
	MatchedAt      time.Time       `json:"matched_at"`
}

// DedupKey project + pattern
func (m ProjectPatternMatch) DedupKey() string {
	return m.ProjectID + "|" + m.PatternID
}
