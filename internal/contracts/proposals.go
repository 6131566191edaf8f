package contracts

import (
	"fmt"
	"time"
)

// SuggestionStatus 벤치마크 제안 상태 (accepted/rejected 전이는 관리자 검토에서만)
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
)

// CostAdjustment proposed benchmark cost change for one group
type CostAdjustment struct {
	ChangePct   float64             `json:"change_pct"`    // capped, signed
	RawDriftPct float64             `json:"raw_drift_pct"` // uncapped mean magnitude, signed
	SignalCount int                 `json:"signal_count"`
	Direction   AdjustmentDirection `json:"direction"`
}

// Display formats the change as "+15.0%"
func (c CostAdjustment) Display() string {
	return fmt.Sprintf("%+.1f%%", c.ChangePct)
}

// RiskAdjustment proposed risk multiplier delta for one group
type RiskAdjustment struct {
	MultiplierDelta float64             `json:"multiplier_delta"`
	SignalCount     int                 `json:"signal_count"`
	Direction       AdjustmentDirection `json:"direction"`
}

// Display formats the delta as "+0.10"
func (r RiskAdjustment) Display() string {
	return fmt.Sprintf("%+.2f", r.MultiplierDelta)
}

// SuggestedChanges cost and/or risk part of a suggestion; at least one is set
type SuggestedChanges struct {
	Cost *CostAdjustment `json:"cost,omitempty"`
	Risk *RiskAdjustment `json:"risk,omitempty"`
}

// IsEmpty reports whether neither change is populated
func (s SuggestedChanges) IsEmpty() bool {
	return s.Cost == nil && s.Risk == nil
}

// BenchmarkSuggestion (typology, tier) 그룹 벤치마크 보정 제안
type BenchmarkSuggestion struct {
	ID         string           `json:"id"`
	Typology   string           `json:"typology"`
	Tier       string           `json:"tier"`
	Changes    SuggestedChanges `json:"suggested_changes"`
	Confidence Fixed4           `json:"confidence"`
	SampleSize int              `json:"sample_size"`
	Status     SuggestionStatus `json:"status"`
	Rationale  string           `json:"rationale"`
	CreatedAt  time.Time        `json:"created_at"`
}

// GroupKey returns the "typology/tier" key
func (s BenchmarkSuggestion) GroupKey() string {
	return s.Typology + "/" + s.Tier
}

// ChangeLogStatus 로직 변경 로그 상태
type ChangeLogStatus string

const (
	ChangeProposed ChangeLogStatus = "proposed"
	ChangeApplied  ChangeLogStatus = "applied"
	ChangeRejected ChangeLogStatus = "rejected"
)

// MissKind score miss classification
type MissKind string

const (
	MissFalseNegative MissKind = "false_negative" // not_validated 예측, 실제 성공
	MissFalsePositive MissKind = "false_positive" // validated 예측, 실제 실패
)

// WeightAction direction of a weight change proposal
type WeightAction string

const (
	ActionReducePenalty      WeightAction = "reduce_penalty"
	ActionIncreaseStringency WeightAction = "increase_stringency"
)

// WeightChangeProposal 스코어링 가중치 변경 제안 (logic change-log entry)
type WeightChangeProposal struct {
	ID             string          `json:"id"`
	LogicVersionID string          `json:"logic_version_id"`
	Dimension      string          `json:"dimension"`
	MissKind       MissKind        `json:"miss_kind"`
	Action         WeightAction    `json:"action"`
	AdjustmentPct  float64         `json:"adjustment_pct"`
	Occurrences    int             `json:"occurrences"`
	CategoryTotal  int             `json:"category_total"`
	Rationale      string          `json:"rationale"`
	Status         ChangeLogStatus `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}
