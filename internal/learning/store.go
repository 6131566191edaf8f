package learning

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/projeval/internal/contracts"
)

// ErrNotFound no row matched
var ErrNotFound = errors.New("not found")

// Store persistence boundary of a learning run
// ⭐ SSOT: 파이프라인이 읽고 쓰는 모든 데이터는 이 인터페이스를 통해서만
//
// Insert* methods return how many rows were actually written; rows that hit a
// uniqueness rule are skipped without error.
type Store interface {
	// Inputs (owned by other subsystems)
	PendingPairs(ctx context.Context) ([]contracts.OutcomePair, error)
	Classifications(ctx context.Context) (map[string]contracts.ProjectClassification, error)
	Contributions(ctx context.Context) (map[string][]contracts.DimensionContribution, error)
	ScoreVectors(ctx context.Context) (map[string]contracts.ScoreVector, error)
	PriceEvents(ctx context.Context, since time.Time) ([]contracts.PriceChangeEvent, error)
	ActiveInsights(ctx context.Context) ([]contracts.MarketInsight, error)

	// Pipeline state
	Comparisons(ctx context.Context) ([]contracts.OutcomeComparison, error)
	RecordedMatchKeys(ctx context.Context) (map[string]struct{}, error)
	PendingSuggestions(ctx context.Context) ([]contracts.BenchmarkSuggestion, error)
	ActiveAlerts(ctx context.Context) ([]contracts.PlatformAlert, error)

	// Outputs
	InsertComparisons(ctx context.Context, comparisons []contracts.OutcomeComparison) (int, error)
	InsertSnapshot(ctx context.Context, snapshot contracts.AccuracySnapshot) error
	InsertSuggestions(ctx context.Context, suggestions []contracts.BenchmarkSuggestion) (int, error)
	InsertProposals(ctx context.Context, proposals []contracts.WeightChangeProposal) (int, error)
	SyncPatterns(ctx context.Context, patterns []contracts.DecisionPattern) (int, error)
	InsertMatches(ctx context.Context, matches []contracts.ProjectPatternMatch) (int, error)
	InsertAlerts(ctx context.Context, alerts []contracts.PlatformAlert) ([]contracts.PlatformAlert, error)
	MarkDelivered(ctx context.Context, alertIDs []string, at time.Time) error
	RecordRun(ctx context.Context, result *RunResult) error
}

// AlertFilter optional filters for ListAlerts; empty fields match everything
type AlertFilter struct {
	Status   contracts.AlertStatus
	Severity contracts.AlertSeverity
	Limit    int
}

// Reader dashboard read surface
type Reader interface {
	LatestSnapshot(ctx context.Context) (*contracts.AccuracySnapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]contracts.AccuracySnapshot, error)
	ListSuggestions(ctx context.Context, status contracts.SuggestionStatus) ([]contracts.BenchmarkSuggestion, error)
	ListProposals(ctx context.Context, status contracts.ChangeLogStatus) ([]contracts.WeightChangeProposal, error)
	ListMatches(ctx context.Context, projectID string) ([]contracts.ProjectPatternMatch, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]contracts.PlatformAlert, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// RunRecord persisted summary of one learning run
type RunRecord struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Outcome   string        `json:"outcome"` // success, failed
	Counts    RunCounts     `json:"counts"`
	Error     string        `json:"error,omitempty"`
}
