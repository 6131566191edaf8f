package contracts

import "time"

// PriceEventSeverity 자재 단가 변동 심각도 (ingestion 레이어가 부여)
type PriceEventSeverity string

const (
	PriceMinor       PriceEventSeverity = "minor"
	PriceModerate    PriceEventSeverity = "moderate"
	PriceSignificant PriceEventSeverity = "significant"
)

// PriceChangeEvent raw price movement for one material category
type PriceChangeEvent struct {
	ID                 string             `json:"id"`
	Category           string             `json:"category"`
	Region             string             `json:"region,omitempty"`
	ChangePct          float64            `json:"change_pct"`
	Severity           PriceEventSeverity `json:"severity"`
	AffectedProjectIDs []string           `json:"affected_project_ids"`
	DetectedAt         time.Time          `json:"detected_at"`
}

// InsightType 시장 인사이트 유형
type InsightType string

const (
	InsightOpportunity InsightType = "opportunity"
	InsightRisk        InsightType = "risk"
	InsightTrend       InsightType = "trend"
)

// MarketInsight project-level insight from the market-intelligence layer
type MarketInsight struct {
	ID                  string      `json:"id"`
	Type                InsightType `json:"type"`
	Category            string      `json:"category"`
	Title               string      `json:"title"`
	Confidence          float64     `json:"confidence"` // 0-1
	PotentialSavingsPct float64     `json:"potential_savings_pct"`
	AffectedProjectIDs  []string    `json:"affected_project_ids"`
	CreatedAt           time.Time   `json:"created_at"`
}
