package contracts

import (
	"sort"
	"strings"
	"time"
)

// AlertSeverity 알림 심각도
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityHigh     AlertSeverity = "high"
	SeverityMedium   AlertSeverity = "medium"
	SeverityLow      AlertSeverity = "low"
)

// Expiry returns how long an alert of this severity stays fresh
func (s AlertSeverity) Expiry() time.Duration {
	switch s {
	case SeverityCritical:
		return 24 * time.Hour
	case SeverityHigh:
		return 72 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// Deliverable reports whether alerts of this severity go to the external channel
func (s AlertSeverity) Deliverable() bool {
	return s == SeverityCritical || s == SeverityHigh
}

// AlertType 알림 유형
type AlertType string

const (
	AlertPriceShock        AlertType = "price_shock"
	AlertProjectAtRisk     AlertType = "project_at_risk"
	AlertAccuracyDegraded  AlertType = "accuracy_degraded"
	AlertBenchmarkDrift    AlertType = "benchmark_drift"
	AlertMarketOpportunity AlertType = "market_opportunity"
	AlertEstimationMiss    AlertType = "estimation_miss_cluster"
)

// AlertStatus 알림 상태 (expired 전이는 외부 housekeeping)
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
	AlertExpired      AlertStatus = "expired"
)

// AlertTrigger the evidence that fired an alert; fields are set per type
type AlertTrigger struct {
	PriceEventID       string   `json:"price_event_id,omitempty"`
	PriceChangePct     *float64 `json:"price_change_pct,omitempty"`
	PatternIDs         []string `json:"pattern_ids,omitempty"`
	OverallAccuracyPct *Fixed4  `json:"overall_accuracy_pct,omitempty"`
	GradedComparisons  int      `json:"graded_comparisons,omitempty"`
	SuggestionID       string   `json:"suggestion_id,omitempty"`
	DriftPct           *float64 `json:"drift_pct,omitempty"`
	InsightID          string   `json:"insight_id,omitempty"`
	InsightConfidence  *float64 `json:"insight_confidence,omitempty"`
	ComparisonIDs      []string `json:"comparison_ids,omitempty"`
}

// PlatformAlert 운영 알림
type PlatformAlert struct {
	ID                 string        `json:"id"`
	Type               AlertType     `json:"type"`
	Severity           AlertSeverity `json:"severity"`
	Title              string        `json:"title"`
	Message            string        `json:"message"`
	SuggestedAction    string        `json:"suggested_action"`
	AffectedProjectIDs []string      `json:"affected_project_ids"`
	AffectedCategories []string      `json:"affected_categories"`
	Trigger            AlertTrigger  `json:"trigger"`
	Status             AlertStatus   `json:"status"`
	ExpiresAt          time.Time     `json:"expires_at"`
	CreatedAt          time.Time     `json:"created_at"`
	DeliveredAt        *time.Time    `json:"delivered_at,omitempty"`
}

// DedupKey type + sorted affected projects + sorted affected categories
// ⭐ SSOT: alert 중복 판정 키 (DB partial unique index와 동일)
func (a PlatformAlert) DedupKey() string {
	return AlertDedupKey(a.Type, a.AffectedProjectIDs, a.AffectedCategories)
}

// AlertDedupKey builds the dedup key without mutating the inputs
func AlertDedupKey(t AlertType, projectIDs, categories []string) string {
	p := append([]string(nil), projectIDs...)
	c := append([]string(nil), categories...)
	sort.Strings(p)
	sort.Strings(c)
	return string(t) + "|" + strings.Join(p, ",") + "|" + strings.Join(c, ",")
}

// IsStale reports whether the alert is past its expiry at now
func (a PlatformAlert) IsStale(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
