package learning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/projeval/internal/contracts"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestRepository_Classifications(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT project_id, typology, tier FROM project_classifications`).
		WillReturnRows(pgxmock.NewRows([]string{"project_id", "typology", "tier"}).
			AddRow("p1", "office", "standard").
			AddRow("p2", "school", "premium"))

	got, err := repo.Classifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "office/standard", got["p1"].GroupKey())
	assert.Equal(t, "school/premium", got["p2"].GroupKey())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertSuggestionsSkipsPendingGroup(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 10, 12, 3, 0, 0, 0, time.UTC)

	suggestions := []contracts.BenchmarkSuggestion{
		{ID: "s1", Typology: "office", Tier: "standard", Confidence: contracts.NewFixed4(0.9), SampleSize: 6,
			Status: contracts.SuggestionPending, Rationale: "r", CreatedAt: now,
			Changes: contracts.SuggestedChanges{Cost: &contracts.CostAdjustment{ChangePct: 15, RawDriftPct: 30}}},
		{ID: "s2", Typology: "school", Tier: "standard", Confidence: contracts.NewFixed4(0.75), SampleSize: 3,
			Status: contracts.SuggestionPending, Rationale: "r", CreatedAt: now,
			Changes: contracts.SuggestedChanges{Risk: &contracts.RiskAdjustment{MultiplierDelta: 0.1}}},
	}

	mock.ExpectExec(`INSERT INTO benchmark_suggestions .* WHERE NOT EXISTS`).
		WithArgs("s1", "office", "standard", pgxmock.AnyArg(), 0.9, 6, "pending", "r", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO benchmark_suggestions .* WHERE NOT EXISTS`).
		WithArgs("s2", "school", "standard", pgxmock.AnyArg(), 0.75, 3, "pending", "r", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	n, err := repo.InsertSuggestions(context.Background(), suggestions)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertProposalsError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO logic_change_log`).
		WillReturnError(errors.New("relation does not exist"))

	_, err := repo.InsertProposals(context.Background(), []contracts.WeightChangeProposal{
		{ID: "w1", LogicVersionID: "v1", Dimension: "budget_fit", MissKind: contracts.MissFalseNegative,
			Action: contracts.ActionReducePenalty, AdjustmentPct: 5, Status: contracts.ChangeProposed},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert proposal budget_fit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertAlertsReturnsOnlyCreated(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 10, 12, 3, 0, 0, 0, time.UTC)

	fresh := contracts.PlatformAlert{
		ID: "a1", Type: contracts.AlertPriceShock, Severity: contracts.SeverityCritical,
		AffectedProjectIDs: []string{"p2", "p1"}, AffectedCategories: []string{"steel"},
		Status: contracts.AlertActive, ExpiresAt: now.Add(24 * time.Hour), CreatedAt: now,
	}
	dup := contracts.PlatformAlert{
		ID: "a2", Type: contracts.AlertAccuracyDegraded, Severity: contracts.SeverityHigh,
		Status: contracts.AlertActive, ExpiresAt: now.Add(72 * time.Hour), CreatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO platform_alerts .* ON CONFLICT \(dedup_key\) WHERE status = 'active' DO NOTHING`).
		WithArgs("a1", "price_shock", "critical", "", "", "",
			[]string{"p2", "p1"}, []string{"steel"}, pgxmock.AnyArg(), "price_shock|p1,p2|steel",
			"active", now.Add(24*time.Hour), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO platform_alerts`).
		WithArgs("a2", "accuracy_degraded", "high", "", "", "",
			[]string{}, []string{}, pgxmock.AnyArg(), "accuracy_degraded||",
			"active", now.Add(72*time.Hour), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := repo.InsertAlerts(context.Background(), []contracts.PlatformAlert{fresh, dup})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "a1", created[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertMatches(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO project_pattern_matches .* ON CONFLICT \(project_id, pattern_id\) DO NOTHING`).
		WithArgs(pgxmock.AnyArg(), "p1", "cost.early_stage_budget", "Budget set before design maturity", 1,
			"cost_anomaly", "c1", "actual cost +30.0% over prediction", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := repo.InsertMatches(context.Background(), []contracts.ProjectPatternMatch{{
		ID: "m1", ProjectID: "p1", PatternID: "cost.early_stage_budget",
		PatternName: "Budget set before design maturity", PatternVersion: 1,
		Category: contracts.PatternCostAnomaly, ComparisonID: "c1",
		Evidence: "actual cost +30.0% over prediction",
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RecordedMatchKeys(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT project_id, pattern_id FROM project_pattern_matches`).
		WillReturnRows(pgxmock.NewRows([]string{"project_id", "pattern_id"}).
			AddRow("p1", "risk.regulatory_exposure"))

	keys, err := repo.RecordedMatchKeys(context.Background())
	require.NoError(t, err)
	assert.Contains(t, keys, "p1|risk.regulatory_exposure")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SyncPatterns(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO decision_patterns .* ON CONFLICT \(id, version\) DO NOTHING`).
		WithArgs("risk.a", 1, "A", "risk_indicator", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec(`INSERT INTO decision_patterns`).
		WithArgs("risk.a", 2, "A", "risk_indicator", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := repo.SyncPatterns(context.Background(), []contracts.DecisionPattern{
		{ID: "risk.a", Name: "A", Version: 1, Category: contracts.PatternRiskIndicator},
		{ID: "risk.a", Name: "A", Version: 2, Category: contracts.PatternRiskIndicator},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_LatestSnapshotNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .* FROM accuracy_snapshots ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(1).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.LatestSnapshot(context.Background())
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertSnapshot(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 10, 12, 3, 0, 0, 0, time.UTC)

	snap := contracts.AccuracySnapshot{
		ID: "snap-1", TotalComparisons: 6, Outside20Count: 6, GradeCCount: 6,
		MeanAbsCostDeltaPct: contracts.NewFixed4(30), ScoreAccuracyRate: contracts.NewFixed4(1),
		CostTrend: contracts.TrendStable, ScoreTrend: contracts.TrendStable, RiskTrend: contracts.TrendStable,
		CreatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO accuracy_snapshots`).
		WithArgs("snap-1", 6, 0, 0, 6, 0, 0, 0, 6, 0,
			30.0, 1.0, 0.0, 0.0, "stable", "stable", "stable",
			pgxmock.AnyArg(), pgxmock.AnyArg(), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.InsertSnapshot(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MarkDelivered(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, 10, 12, 3, 5, 0, 0, time.UTC)

	// no IDs, no query
	require.NoError(t, repo.MarkDelivered(context.Background(), nil, at))

	mock.ExpectExec(`UPDATE platform_alerts SET delivered_at = \$1 WHERE id = ANY\(\$2\)`).
		WithArgs(at, []string{"a1", "a3"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	require.NoError(t, repo.MarkDelivered(context.Background(), []string{"a1", "a3"}, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListAlertsWithLimit(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 10, 12, 3, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM platform_alerts .* LIMIT \$3`).
		WithArgs("active", "high", 10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "alert_type", "severity", "title", "message", "suggested_action",
			"affected_project_ids", "affected_categories", "trigger_data", "status",
			"expires_at", "delivered_at", "created_at",
		}).AddRow("a1", "accuracy_degraded", "high", "t", "m", "s",
			[]string{}, []string{}, contracts.AlertTrigger{GradedComparisons: 6}, "active",
			now.Add(72*time.Hour), (*time.Time)(nil), now))

	got, err := repo.ListAlerts(context.Background(), AlertFilter{
		Status: contracts.AlertActive, Severity: contracts.SeverityHigh, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, contracts.AlertAccuracyDegraded, got[0].Type)
	assert.Equal(t, 6, got[0].Trigger.GradedComparisons)
	assert.Nil(t, got[0].DeliveredAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RecordRun(t *testing.T) {
	repo, mock := newMockRepo(t)
	started := time.Date(2026, 10, 12, 3, 0, 0, 0, time.UTC)

	res := &RunResult{RunID: "run-1", StartedAt: started, Duration: 1500 * time.Millisecond, Success: true}

	mock.ExpectExec(`INSERT INTO learning_runs`).
		WithArgs("run-1", started, int64(1500), "success", pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.RecordRun(context.Background(), res))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListRuns(t *testing.T) {
	repo, mock := newMockRepo(t)
	started := time.Date(2026, 10, 12, 3, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, started_at, duration_ms, result, counts, error\s+FROM learning_runs`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "started_at", "duration_ms", "result", "counts", "error"}).
			AddRow("run-2", started, int64(2500), "failed", RunCounts{Compared: 3}, "alerts stage: boom").
			AddRow("run-1", started.Add(-7*24*time.Hour), int64(1500), "success", RunCounts{Compared: 6, AlertsCreated: 2}, ""))

	runs, err := repo.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, 2500*time.Millisecond, runs[0].Duration)
	assert.Equal(t, "alerts stage: boom", runs[0].Error)
	assert.Equal(t, 2, runs[1].Counts.AlertsCreated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
