package learning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/projeval/internal/contracts"
	"github.com/wonny/projeval/pkg/database"
)

// Repository learning 데이터 저장소 (PostgreSQL)
// 모든 쓰기는 독립 INSERT이며 중복은 유니크 인덱스로 흡수
type Repository struct {
	pool database.Pool
}

var (
	_ Store  = (*Repository)(nil)
	_ Reader = (*Repository)(nil)
)

// NewRepository 새 저장소 생성
func NewRepository(pool database.Pool) *Repository {
	return &Repository{pool: pool}
}

// =============================================================================
// Inputs
// =============================================================================

// PendingPairs outcomes with no comparison yet, each paired with the latest
// prediction bundle of its project. Ordered by outcome record time.
func (r *Repository) PendingPairs(ctx context.Context) ([]contracts.OutcomePair, error) {
	query := `
		SELECT p.id, p.project_id, p.composite_score, p.decision, p.risk_score,
		       p.predicted_cost_mid, p.contributions, p.predicted_at,
		       o.id, o.project_id, o.actual_total_cost, o.actual_cost_per_m2,
		       o.delivered_on_time, o.client_satisfaction, o.rework_occurred,
		       o.rework_cost, o.tender_iterations, o.recorded_at
		FROM project_outcomes o
		JOIN LATERAL (
			SELECT * FROM prediction_bundles pb
			WHERE pb.project_id = o.project_id
			ORDER BY pb.predicted_at DESC
			LIMIT 1
		) p ON TRUE
		WHERE NOT EXISTS (SELECT 1 FROM outcome_comparisons c WHERE c.outcome_id = o.id)
		ORDER BY o.recorded_at, o.id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query pending pairs: %w", err)
	}
	defer rows.Close()

	var pairs []contracts.OutcomePair
	for rows.Next() {
		var pr contracts.OutcomePair
		var decision string
		p, o := &pr.Prediction, &pr.Outcome
		if err := rows.Scan(
			&p.ID, &p.ProjectID, &p.CompositeScore, &decision, &p.RiskScore,
			&p.PredictedCostMid, &p.Contributions, &p.PredictedAt,
			&o.ID, &o.ProjectID, &o.ActualTotalCost, &o.ActualCostPerM2,
			&o.DeliveredOnTime, &o.ClientSatisfaction, &o.ReworkOccurred,
			&o.ReworkCost, &o.TenderIterations, &o.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pending pair: %w", err)
		}
		p.Decision = contracts.DecisionLabel(decision)
		pairs = append(pairs, pr)
	}
	return pairs, rows.Err()
}

// Classifications project_id → (typology, tier)
func (r *Repository) Classifications(ctx context.Context) (map[string]contracts.ProjectClassification, error) {
	rows, err := r.pool.Query(ctx, `SELECT project_id, typology, tier FROM project_classifications`)
	if err != nil {
		return nil, fmt.Errorf("query classifications: %w", err)
	}
	defer rows.Close()

	out := make(map[string]contracts.ProjectClassification)
	for rows.Next() {
		var c contracts.ProjectClassification
		if err := rows.Scan(&c.ProjectID, &c.Typology, &c.Tier); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		out[c.ProjectID] = c
	}
	return out, rows.Err()
}

// Contributions dimension breakdown of each project's latest prediction
func (r *Repository) Contributions(ctx context.Context) (map[string][]contracts.DimensionContribution, error) {
	query := `
		SELECT DISTINCT ON (project_id) project_id, contributions
		FROM prediction_bundles
		ORDER BY project_id, predicted_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query contributions: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]contracts.DimensionContribution)
	for rows.Next() {
		var projectID string
		var contribs []contracts.DimensionContribution
		if err := rows.Scan(&projectID, &contribs); err != nil {
			return nil, fmt.Errorf("scan contributions: %w", err)
		}
		out[projectID] = contribs
	}
	return out, rows.Err()
}

// ScoreVectors project_id → dimension scores
func (r *Repository) ScoreVectors(ctx context.Context) (map[string]contracts.ScoreVector, error) {
	rows, err := r.pool.Query(ctx, `SELECT project_id, scores FROM project_score_vectors`)
	if err != nil {
		return nil, fmt.Errorf("query score vectors: %w", err)
	}
	defer rows.Close()

	out := make(map[string]contracts.ScoreVector)
	for rows.Next() {
		var projectID string
		var scores map[string]float64
		if err := rows.Scan(&projectID, &scores); err != nil {
			return nil, fmt.Errorf("scan score vector: %w", err)
		}
		out[projectID] = contracts.ScoreVector(scores)
	}
	return out, rows.Err()
}

// PriceEvents events detected at or after since
func (r *Repository) PriceEvents(ctx context.Context, since time.Time) ([]contracts.PriceChangeEvent, error) {
	query := `
		SELECT id, category, region, change_pct, severity, affected_project_ids, detected_at
		FROM price_change_events
		WHERE detected_at >= $1
		ORDER BY detected_at, id`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query price events: %w", err)
	}
	defer rows.Close()

	var events []contracts.PriceChangeEvent
	for rows.Next() {
		var e contracts.PriceChangeEvent
		var severity string
		if err := rows.Scan(&e.ID, &e.Category, &e.Region, &e.ChangePct, &severity, &e.AffectedProjectIDs, &e.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan price event: %w", err)
		}
		e.Severity = contracts.PriceEventSeverity(severity)
		events = append(events, e)
	}
	return events, rows.Err()
}

// ActiveInsights market insights still flagged active
func (r *Repository) ActiveInsights(ctx context.Context) ([]contracts.MarketInsight, error) {
	query := `
		SELECT id, insight_type, category, title, confidence, potential_savings_pct,
		       affected_project_ids, created_at
		FROM market_insights
		WHERE active
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	var insights []contracts.MarketInsight
	for rows.Next() {
		var in contracts.MarketInsight
		var typ string
		if err := rows.Scan(&in.ID, &typ, &in.Category, &in.Title, &in.Confidence,
			&in.PotentialSavingsPct, &in.AffectedProjectIDs, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		in.Type = contracts.InsightType(typ)
		insights = append(insights, in)
	}
	return insights, rows.Err()
}

// =============================================================================
// Comparisons
// =============================================================================

const comparisonColumns = `id, project_id, prediction_id, outcome_id,
	predicted_cost, actual_cost, cost_delta_pct, cost_band,
	predicted_decision, predicted_success, actual_success, score_prediction_correct,
	predicted_risk, actual_rework, risk_prediction_correct,
	grade, signals, captured_at, created_at`

// Comparisons every recorded comparison in ascending capture order
func (r *Repository) Comparisons(ctx context.Context) ([]contracts.OutcomeComparison, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+comparisonColumns+` FROM outcome_comparisons ORDER BY captured_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query comparisons: %w", err)
	}
	defer rows.Close()

	var out []contracts.OutcomeComparison
	for rows.Next() {
		var c contracts.OutcomeComparison
		var band, decision, grade string
		if err := rows.Scan(
			&c.ID, &c.ProjectID, &c.PredictionID, &c.OutcomeID,
			&c.PredictedCost, &c.ActualCost, &c.CostDeltaPct, &band,
			&decision, &c.PredictedSuccess, &c.ActualSuccess, &c.ScorePredictionCorrect,
			&c.PredictedRisk, &c.ActualRework, &c.RiskPredictionCorrect,
			&grade, &c.Signals, &c.CapturedAt, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan comparison: %w", err)
		}
		c.CostBand = contracts.CostAccuracyBand(band)
		c.PredictedDecision = contracts.DecisionLabel(decision)
		c.Grade = contracts.AccuracyGrade(grade)
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertComparisons one comparison per outcome; already-compared outcomes are skipped
func (r *Repository) InsertComparisons(ctx context.Context, comparisons []contracts.OutcomeComparison) (int, error) {
	if len(comparisons) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO outcome_comparisons (` + comparisonColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (outcome_id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, c := range comparisons {
		batch.Queue(query,
			c.ID, c.ProjectID, c.PredictionID, c.OutcomeID,
			c.PredictedCost, c.ActualCost, c.CostDeltaPct, string(c.CostBand),
			string(c.PredictedDecision), c.PredictedSuccess, c.ActualSuccess, c.ScorePredictionCorrect,
			c.PredictedRisk, c.ActualRework, c.RiskPredictionCorrect,
			string(c.Grade), c.Signals, c.CapturedAt, c.CreatedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range comparisons {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert comparison: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// =============================================================================
// Snapshots
// =============================================================================

const snapshotColumns = `id, total_comparisons,
	within_10_count, within_20_count, outside_20_count, no_prediction_count,
	grade_a_count, grade_b_count, grade_c_count, insufficient_data_count,
	mean_abs_cost_delta_pct, score_accuracy_rate, risk_accuracy_rate, overall_accuracy_pct,
	cost_trend, score_trend, risk_trend, period_start, period_end, created_at`

// InsertSnapshot 스냅샷 저장 (실행마다 새 행)
func (r *Repository) InsertSnapshot(ctx context.Context, s contracts.AccuracySnapshot) error {
	query := `
		INSERT INTO accuracy_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.TotalComparisons,
		s.Within10Count, s.Within20Count, s.Outside20Count, s.NoPredictionCount,
		s.GradeACount, s.GradeBCount, s.GradeCCount, s.InsufficientDataCount,
		s.MeanAbsCostDeltaPct.Float64(), s.ScoreAccuracyRate.Float64(),
		s.RiskAccuracyRate.Float64(), s.OverallAccuracyPct.Float64(),
		string(s.CostTrend), string(s.ScoreTrend), string(s.RiskTrend),
		s.PeriodStart, s.PeriodEnd, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot most recent snapshot or ErrNotFound
func (r *Repository) LatestSnapshot(ctx context.Context) (*contracts.AccuracySnapshot, error) {
	snaps, err := r.ListSnapshots(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	return &snaps[0], nil
}

// ListSnapshots newest first
func (r *Repository) ListSnapshots(ctx context.Context, limit int) ([]contracts.AccuracySnapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+snapshotColumns+` FROM accuracy_snapshots ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []contracts.AccuracySnapshot
	for rows.Next() {
		var s contracts.AccuracySnapshot
		var mae, score, risk, overall float64
		var costTrend, scoreTrend, riskTrend string
		if err := rows.Scan(
			&s.ID, &s.TotalComparisons,
			&s.Within10Count, &s.Within20Count, &s.Outside20Count, &s.NoPredictionCount,
			&s.GradeACount, &s.GradeBCount, &s.GradeCCount, &s.InsufficientDataCount,
			&mae, &score, &risk, &overall,
			&costTrend, &scoreTrend, &riskTrend, &s.PeriodStart, &s.PeriodEnd, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.MeanAbsCostDeltaPct = contracts.NewFixed4(mae)
		s.ScoreAccuracyRate = contracts.NewFixed4(score)
		s.RiskAccuracyRate = contracts.NewFixed4(risk)
		s.OverallAccuracyPct = contracts.NewFixed4(overall)
		s.CostTrend = contracts.TrendDirection(costTrend)
		s.ScoreTrend = contracts.TrendDirection(scoreTrend)
		s.RiskTrend = contracts.TrendDirection(riskTrend)
		out = append(out, s)
	}
	return out, rows.Err()
}

// =============================================================================
// Benchmark suggestions
// =============================================================================

const suggestionColumns = `id, typology, tier, suggested_changes, confidence, sample_size, status, rationale, created_at`

// InsertSuggestions skips a group that already has a pending suggestion
func (r *Repository) InsertSuggestions(ctx context.Context, suggestions []contracts.BenchmarkSuggestion) (int, error) {
	query := `
		INSERT INTO benchmark_suggestions (` + suggestionColumns + `)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (
			SELECT 1 FROM benchmark_suggestions
			WHERE typology = $2 AND tier = $3 AND status = 'pending'
		)
		ON CONFLICT DO NOTHING`

	inserted := 0
	for _, s := range suggestions {
		tag, err := r.pool.Exec(ctx, query,
			s.ID, s.Typology, s.Tier, s.Changes, s.Confidence.Float64(),
			s.SampleSize, string(s.Status), s.Rationale, s.CreatedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert suggestion %s: %w", s.GroupKey(), err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// PendingSuggestions suggestions awaiting review
func (r *Repository) PendingSuggestions(ctx context.Context) ([]contracts.BenchmarkSuggestion, error) {
	return r.ListSuggestions(ctx, contracts.SuggestionPending)
}

// ListSuggestions by status (empty = all), newest first
func (r *Repository) ListSuggestions(ctx context.Context, status contracts.SuggestionStatus) ([]contracts.BenchmarkSuggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM benchmark_suggestions
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, typology, tier`

	rows, err := r.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("query suggestions: %w", err)
	}
	defer rows.Close()

	var out []contracts.BenchmarkSuggestion
	for rows.Next() {
		var s contracts.BenchmarkSuggestion
		var confidence float64
		var st string
		if err := rows.Scan(&s.ID, &s.Typology, &s.Tier, &s.Changes, &confidence,
			&s.SampleSize, &st, &s.Rationale, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		s.Confidence = contracts.NewFixed4(confidence)
		s.Status = contracts.SuggestionStatus(st)
		out = append(out, s)
	}
	return out, rows.Err()
}

// =============================================================================
// Weight change proposals
// =============================================================================

const proposalColumns = `id, logic_version_id, dimension, miss_kind, action, adjustment_pct,
	occurrences, category_total, rationale, status, created_at`

// InsertProposals skips a (version, dimension, action) that is already proposed
func (r *Repository) InsertProposals(ctx context.Context, proposals []contracts.WeightChangeProposal) (int, error) {
	query := `
		INSERT INTO logic_change_log (` + proposalColumns + `)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		WHERE NOT EXISTS (
			SELECT 1 FROM logic_change_log
			WHERE logic_version_id = $2 AND dimension = $3 AND action = $5 AND status = 'proposed'
		)
		ON CONFLICT DO NOTHING`

	inserted := 0
	for _, p := range proposals {
		tag, err := r.pool.Exec(ctx, query,
			p.ID, p.LogicVersionID, p.Dimension, string(p.MissKind), string(p.Action),
			p.AdjustmentPct, p.Occurrences, p.CategoryTotal, p.Rationale, string(p.Status), p.CreatedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert proposal %s: %w", p.Dimension, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// ListProposals by status (empty = all), newest first
func (r *Repository) ListProposals(ctx context.Context, status contracts.ChangeLogStatus) ([]contracts.WeightChangeProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM logic_change_log
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, dimension`

	rows, err := r.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	defer rows.Close()

	var out []contracts.WeightChangeProposal
	for rows.Next() {
		var p contracts.WeightChangeProposal
		var kind, action, st string
		if err := rows.Scan(&p.ID, &p.LogicVersionID, &p.Dimension, &kind, &action, &p.AdjustmentPct,
			&p.Occurrences, &p.CategoryTotal, &p.Rationale, &st, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		p.MissKind = contracts.MissKind(kind)
		p.Action = contracts.WeightAction(action)
		p.Status = contracts.ChangeLogStatus(st)
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// Patterns
// =============================================================================

// SyncPatterns registers library patterns by (id, version); known versions are left untouched
func (r *Repository) SyncPatterns(ctx context.Context, patterns []contracts.DecisionPattern) (int, error) {
	query := `
		INSERT INTO decision_patterns (id, version, name, category, description, conditions)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id, version) DO NOTHING`

	inserted := 0
	for _, p := range patterns {
		tag, err := r.pool.Exec(ctx, query, p.ID, p.Version, p.Name, string(p.Category), p.Description, p.Conditions)
		if err != nil {
			return inserted, fmt.Errorf("sync pattern %s: %w", p.ID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// RecordedMatchKeys dedup keys of every recorded (project, pattern) pair
func (r *Repository) RecordedMatchKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT project_id, pattern_id FROM project_pattern_matches`)
	if err != nil {
		return nil, fmt.Errorf("query recorded matches: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var m contracts.ProjectPatternMatch
		if err := rows.Scan(&m.ProjectID, &m.PatternID); err != nil {
			return nil, fmt.Errorf("scan recorded match: %w", err)
		}
		out[m.DedupKey()] = struct{}{}
	}
	return out, rows.Err()
}

const matchColumns = `id, project_id, pattern_id, pattern_name, pattern_version, category, comparison_id, evidence, matched_at`

// InsertMatches (project, pattern) pairs already recorded are skipped
func (r *Repository) InsertMatches(ctx context.Context, matches []contracts.ProjectPatternMatch) (int, error) {
	query := `
		INSERT INTO project_pattern_matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (project_id, pattern_id) DO NOTHING`

	inserted := 0
	for _, m := range matches {
		tag, err := r.pool.Exec(ctx, query,
			m.ID, m.ProjectID, m.PatternID, m.PatternName, m.PatternVersion,
			string(m.Category), m.ComparisonID, m.Evidence, m.MatchedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert match %s: %w", m.DedupKey(), err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// ListMatches by project (empty = all), newest first
func (r *Repository) ListMatches(ctx context.Context, projectID string) ([]contracts.ProjectPatternMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM project_pattern_matches
		WHERE ($1 = '' OR project_id = $1)
		ORDER BY matched_at DESC, project_id, pattern_id`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var out []contracts.ProjectPatternMatch
	for rows.Next() {
		var m contracts.ProjectPatternMatch
		var category string
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.PatternID, &m.PatternName, &m.PatternVersion,
			&category, &m.ComparisonID, &m.Evidence, &m.MatchedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Category = contracts.PatternCategory(category)
		out = append(out, m)
	}
	return out, rows.Err()
}

// =============================================================================
// Alerts
// =============================================================================

const alertColumns = `id, alert_type, severity, title, message, suggested_action,
	affected_project_ids, affected_categories, trigger_data, status, expires_at, delivered_at, created_at`

// InsertAlerts returns only the alerts actually written; an active alert with
// the same dedup key makes the insert a no-op
func (r *Repository) InsertAlerts(ctx context.Context, alerts []contracts.PlatformAlert) ([]contracts.PlatformAlert, error) {
	query := `
		INSERT INTO platform_alerts (id, alert_type, severity, title, message, suggested_action,
			affected_project_ids, affected_categories, trigger_data, dedup_key, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (dedup_key) WHERE status = 'active' DO NOTHING`

	var created []contracts.PlatformAlert
	for _, a := range alerts {
		tag, err := r.pool.Exec(ctx, query,
			a.ID, string(a.Type), string(a.Severity), a.Title, a.Message, a.SuggestedAction,
			nonNil(a.AffectedProjectIDs), nonNil(a.AffectedCategories), a.Trigger, a.DedupKey(),
			string(a.Status), a.ExpiresAt, a.CreatedAt,
		)
		if err != nil {
			return created, fmt.Errorf("insert alert %s: %w", a.Type, err)
		}
		if tag.RowsAffected() > 0 {
			created = append(created, a)
		}
	}
	return created, nil
}

// ActiveAlerts alerts still in active status
func (r *Repository) ActiveAlerts(ctx context.Context) ([]contracts.PlatformAlert, error) {
	return r.ListAlerts(ctx, AlertFilter{Status: contracts.AlertActive})
}

// ListAlerts newest first
func (r *Repository) ListAlerts(ctx context.Context, filter AlertFilter) ([]contracts.PlatformAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM platform_alerts
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR severity = $2)
		ORDER BY created_at DESC, id`
	args := []any{string(filter.Status), string(filter.Severity)}
	if filter.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []contracts.PlatformAlert
	for rows.Next() {
		var a contracts.PlatformAlert
		var typ, severity, status string
		if err := rows.Scan(&a.ID, &typ, &severity, &a.Title, &a.Message, &a.SuggestedAction,
			&a.AffectedProjectIDs, &a.AffectedCategories, &a.Trigger, &status,
			&a.ExpiresAt, &a.DeliveredAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Type = contracts.AlertType(typ)
		a.Severity = contracts.AlertSeverity(severity)
		a.Status = contracts.AlertStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkDelivered stamps delivered_at on successfully forwarded alerts
func (r *Repository) MarkDelivered(ctx context.Context, alertIDs []string, at time.Time) error {
	if len(alertIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE platform_alerts SET delivered_at = $1 WHERE id = ANY($2) AND delivered_at IS NULL`,
		at, alertIDs)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

// =============================================================================
// Runs
// =============================================================================

// RecordRun 실행 이력 저장
func (r *Repository) RecordRun(ctx context.Context, result *RunResult) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO learning_runs (id, started_at, duration_ms, result, counts, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		result.RunID, result.StartedAt, result.Duration.Milliseconds(),
		result.Outcome(), result.Counts, result.Error,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns most recent runs first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, started_at, duration_ms, result, counts, error
		FROM learning_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var durationMs int64
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &durationMs, &rec.Outcome, &rec.Counts, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// IsNotFound reports whether err is ErrNotFound or pgx.ErrNoRows
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}
