package learning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/projeval/internal/alerts"
	"github.com/wonny/projeval/internal/calibration"
	"github.com/wonny/projeval/internal/contracts"
	"github.com/wonny/projeval/internal/ledger"
	"github.com/wonny/projeval/internal/outcome"
	"github.com/wonny/projeval/internal/patterns"
	"github.com/wonny/projeval/pkg/config"
	"github.com/wonny/projeval/pkg/logger"
	"github.com/wonny/projeval/pkg/redis"
)

// ErrRunInProgress another run holds the run lock
var ErrRunInProgress = errors.New("learning run already in progress")

// RunLockKey lock key shared by every process that can trigger a run
const RunLockKey = "learning:run"

// Stage names in execution order
const (
	StageCompare     = "compare"
	StageLedger      = "ledger"
	StageCalibrate   = "calibrate"
	StageWeights     = "weights"
	StagePatterns    = "patterns"
	StageAlerts      = "alerts"
	StageDelivery    = "delivery"
	runResultSuccess = "success"
	runResultFailed  = "failed"
	runResultSkipped = "skipped"
)

// RunCounts per-run output counters
type RunCounts struct {
	Compared             int `json:"compared"`
	Skipped              int `json:"skipped"` // outcomes compared concurrently by another run
	InsufficientData     int `json:"insufficient_data"`
	Suggestions          int `json:"suggestions"`
	Proposals            int `json:"proposals"`
	PatternsSynced       int `json:"patterns_synced"`
	Matches              int `json:"matches"`
	AlertsCreated        int `json:"alerts_created"`
	AlertsDuplicate      int `json:"alerts_duplicate"`
	AlertsDelivered      int `json:"alerts_delivered"`
	AlertsDeliveryFailed int `json:"alerts_delivery_failed"`
}

// StageResult one completed stage
type StageResult struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// RunResult holds the results of one learning run
type RunResult struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Stages      []StageResult `json:"stages"`
	Counts      RunCounts     `json:"counts"`
	LibraryHash string        `json:"library_hash,omitempty"`
	Success     bool          `json:"success"`
	Skipped     bool          `json:"skipped"` // lock held by another run
	Error       string        `json:"error,omitempty"`
}

// Outcome success | failed | skipped
func (r *RunResult) Outcome() string {
	switch {
	case r.Success:
		return runResultSuccess
	case r.Skipped:
		return runResultSkipped
	default:
		return runResultFailed
	}
}

// CompletedStages stage names in order
func (r *RunResult) CompletedStages() []string {
	names := make([]string, len(r.Stages))
	for i, s := range r.Stages {
		names[i] = s.Name
	}
	return names
}

// Orchestrator coordinates one outcome learning run
// ⭐ SSOT: 학습 파이프라인 조율은 여기서만
// compare → ledger → calibrate → weights → patterns → alerts → delivery
type Orchestrator struct {
	comparator *outcome.Comparator
	ledger     *ledger.Ledger
	calibrator *calibration.Calibrator
	weights    *calibration.WeightAnalyzer
	extractor  *patterns.Extractor
	engine     *alerts.Engine
	dispatcher *alerts.Dispatcher

	store   Store
	locker  *redis.Locker
	cache   *redis.Cache
	library *patterns.Library
	cfg     config.LearningConfig

	now    func() time.Time
	logger *logger.Logger
}

// NewOrchestrator wires the pure components with default thresholds.
// dispatcher may be nil (delivery disabled); cache may be nil.
func NewOrchestrator(
	store Store,
	locker *redis.Locker,
	cache *redis.Cache,
	library *patterns.Library,
	dispatcher *alerts.Dispatcher,
	cfg config.LearningConfig,
	log *logger.Logger,
) *Orchestrator {
	zl := log.Zerolog()
	if dispatcher == nil {
		dispatcher = alerts.NewDispatcher(nil, nil, zl)
	}
	return &Orchestrator{
		comparator: outcome.NewComparator(zl),
		ledger:     ledger.New(zl),
		calibrator: calibration.NewCalibrator(zl),
		weights:    calibration.NewWeightAnalyzer(zl),
		extractor:  patterns.NewExtractor(zl),
		engine:     alerts.NewEngine(zl),
		dispatcher: dispatcher,
		store:      store,
		locker:     locker,
		cache:      cache,
		library:    library,
		cfg:        cfg,
		now:        time.Now,
		logger:     log.WithComponent("learning.orchestrator"),
	}
}

// runState values handed from one stage to the next
type runState struct {
	now         time.Time
	comparisons []contracts.OutcomeComparison
	snapshot    *contracts.AccuracySnapshot
	matches     []contracts.ProjectPatternMatch
	created     []contracts.PlatformAlert
}

// Run executes every stage once. A concurrent run returns ErrRunInProgress.
// Stages that completed before a failure keep their writes; the next run
// picks up from the persisted state.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	start := o.now()
	result := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: start,
		Stages:    make([]StageResult, 0, 7),
	}

	lock, err := o.locker.Acquire(ctx, RunLockKey, o.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockHeld) {
			err = ErrRunInProgress
			result.Skipped = true
		}
		result.Error = err.Error()
		runsTotal.WithLabelValues(result.Outcome()).Inc()
		o.logger.WithError(err).Warn("Learning run not started")
		return result, err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			o.logger.WithError(err).Warn("Failed to release run lock")
		}
	}()

	if hash, err := patterns.Hash(o.library); err == nil {
		result.LibraryHash = hash
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":          result.RunID,
		"library_version": o.library.Version,
		"logic_version":   o.cfg.LogicVersionID,
	}).Info("Starting learning run")

	st := &runState{now: start}
	stages := []struct {
		name string
		fn   func(context.Context, *runState, *RunResult) error
	}{
		{StageCompare, o.runCompare},
		{StageLedger, o.runLedger},
		{StageCalibrate, o.runCalibrate},
		{StageWeights, o.runWeights},
		{StagePatterns, o.runPatterns},
		{StageAlerts, o.runAlerts},
		{StageDelivery, o.runDelivery},
	}

	for _, s := range stages {
		stageStart := time.Now()
		if err := s.fn(ctx, st, result); err != nil {
			err = fmt.Errorf("%s stage: %w", s.name, err)
			o.finish(ctx, result, start, err)
			return result, err
		}
		result.Stages = append(result.Stages, StageResult{Name: s.name, Duration: time.Since(stageStart)})
	}

	o.finish(ctx, result, start, nil)
	return result, nil
}

func (o *Orchestrator) finish(ctx context.Context, result *RunResult, start time.Time, runErr error) {
	result.Duration = o.now().Sub(start)
	result.Success = runErr == nil
	if runErr != nil {
		result.Error = runErr.Error()
	}

	runsTotal.WithLabelValues(result.Outcome()).Inc()
	runDuration.Observe(result.Duration.Seconds())

	if err := o.store.RecordRun(context.WithoutCancel(ctx), result); err != nil {
		o.logger.WithError(err).Warn("Failed to record run")
	}

	fields := map[string]interface{}{
		"run_id":         result.RunID,
		"duration":       result.Duration.Seconds(),
		"stages":         len(result.Stages),
		"compared":       result.Counts.Compared,
		"suggestions":    result.Counts.Suggestions,
		"proposals":      result.Counts.Proposals,
		"matches":        result.Counts.Matches,
		"alerts_created": result.Counts.AlertsCreated,
	}
	if runErr != nil {
		o.logger.WithFields(fields).WithError(runErr).Error("Learning run failed")
		return
	}
	o.logger.WithFields(fields).Info("Learning run completed")
}

// runCompare compares every outcome not yet compared, oldest first
func (o *Orchestrator) runCompare(ctx context.Context, st *runState, res *RunResult) error {
	pairs, err := o.store.PendingPairs(ctx)
	if err != nil {
		return fmt.Errorf("load pending pairs: %w", err)
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Outcome.RecordedAt.Before(pairs[j].Outcome.RecordedAt)
	})

	fresh := o.comparator.CompareAll(pairs)
	for i := range fresh {
		fresh[i].ID = uuid.NewString()
		fresh[i].CreatedAt = st.now
		if fresh[i].Grade == contracts.GradeInsufficientData {
			res.Counts.InsufficientData++
		}
	}

	inserted, err := o.store.InsertComparisons(ctx, fresh)
	if err != nil {
		return fmt.Errorf("save comparisons: %w", err)
	}
	res.Counts.Compared = inserted
	res.Counts.Skipped = len(fresh) - inserted
	recordOutputs("comparison", len(fresh), inserted)

	st.comparisons, err = o.store.Comparisons(ctx)
	if err != nil {
		return fmt.Errorf("load comparisons: %w", err)
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":            res.RunID,
		"pending":           len(pairs),
		"compared":          inserted,
		"insufficient_data": res.Counts.InsufficientData,
		"total":             len(st.comparisons),
	}).Info("Compare stage completed")
	return nil
}

func (o *Orchestrator) runLedger(ctx context.Context, st *runState, res *RunResult) error {
	snapshot := o.ledger.Compute(st.comparisons)
	snapshot.ID = uuid.NewString()
	snapshot.CreatedAt = st.now

	if err := o.store.InsertSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	st.snapshot = &snapshot
	recordOutputs("snapshot", 1, 1)

	if o.cache != nil {
		if err := o.cache.Delete(ctx, redis.LatestSnapshotKey); err != nil {
			o.logger.WithError(err).Warn("Failed to invalidate snapshot cache")
		}
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":           res.RunID,
		"overall_accuracy": snapshot.OverallAccuracyPct.String(),
		"cost_trend":       snapshot.CostTrend,
		"score_trend":      snapshot.ScoreTrend,
		"risk_trend":       snapshot.RiskTrend,
	}).Info("Ledger stage completed")
	return nil
}

func (o *Orchestrator) runCalibrate(ctx context.Context, st *runState, res *RunResult) error {
	classifications, err := o.store.Classifications(ctx)
	if err != nil {
		return fmt.Errorf("load classifications: %w", err)
	}

	suggestions := o.calibrator.GenerateSuggestions(st.comparisons, classifications)
	for i := range suggestions {
		suggestions[i].ID = uuid.NewString()
		suggestions[i].CreatedAt = st.now
	}

	inserted, err := o.store.InsertSuggestions(ctx, suggestions)
	if err != nil {
		return fmt.Errorf("save suggestions: %w", err)
	}
	res.Counts.Suggestions = inserted
	recordOutputs("benchmark_suggestion", len(suggestions), inserted)

	o.logger.WithFields(map[string]interface{}{
		"run_id":    res.RunID,
		"generated": len(suggestions),
		"inserted":  inserted,
	}).Info("Calibrate stage completed")
	return nil
}

func (o *Orchestrator) runWeights(ctx context.Context, st *runState, res *RunResult) error {
	contributions, err := o.store.Contributions(ctx)
	if err != nil {
		return fmt.Errorf("load contributions: %w", err)
	}

	proposals := o.weights.Analyze(st.comparisons, contributions, o.cfg.LogicVersionID)
	for i := range proposals {
		proposals[i].ID = uuid.NewString()
		proposals[i].CreatedAt = st.now
	}

	inserted, err := o.store.InsertProposals(ctx, proposals)
	if err != nil {
		return fmt.Errorf("save proposals: %w", err)
	}
	res.Counts.Proposals = inserted
	recordOutputs("weight_proposal", len(proposals), inserted)

	o.logger.WithFields(map[string]interface{}{
		"run_id":    res.RunID,
		"generated": len(proposals),
		"inserted":  inserted,
	}).Info("Weights stage completed")
	return nil
}

func (o *Orchestrator) runPatterns(ctx context.Context, st *runState, res *RunResult) error {
	synced, err := o.store.SyncPatterns(ctx, o.library.Patterns)
	if err != nil {
		return fmt.Errorf("sync pattern library: %w", err)
	}
	res.Counts.PatternsSynced = synced

	vectors, err := o.store.ScoreVectors(ctx)
	if err != nil {
		return fmt.Errorf("load score vectors: %w", err)
	}
	recorded, err := o.store.RecordedMatchKeys(ctx)
	if err != nil {
		return fmt.Errorf("load recorded matches: %w", err)
	}

	matches := o.extractor.ExtractValidatedMatches(st.comparisons, vectors, o.library.Patterns)
	candidates := len(matches)
	matches = patterns.ExcludeRecorded(matches, recorded)
	for i := range matches {
		matches[i].ID = uuid.NewString()
		matches[i].MatchedAt = st.now
	}

	inserted, err := o.store.InsertMatches(ctx, matches)
	if err != nil {
		return fmt.Errorf("save matches: %w", err)
	}
	res.Counts.Matches = inserted
	recordOutputs("pattern_match", candidates, inserted)
	st.matches = matches

	o.logger.WithFields(map[string]interface{}{
		"run_id":          res.RunID,
		"patterns_synced": synced,
		"validated":       candidates,
		"inserted":        inserted,
	}).Info("Patterns stage completed")
	return nil
}

func (o *Orchestrator) runAlerts(ctx context.Context, st *runState, res *RunResult) error {
	events, err := o.store.PriceEvents(ctx, st.now.Add(-o.cfg.PriceEventLookback))
	if err != nil {
		return fmt.Errorf("load price events: %w", err)
	}
	insights, err := o.store.ActiveInsights(ctx)
	if err != nil {
		return fmt.Errorf("load insights: %w", err)
	}
	pending, err := o.store.PendingSuggestions(ctx)
	if err != nil {
		return fmt.Errorf("load pending suggestions: %w", err)
	}
	active, err := o.store.ActiveAlerts(ctx)
	if err != nil {
		return fmt.Errorf("load active alerts: %w", err)
	}

	in := alerts.Inputs{
		PriceEvents:        events,
		Insights:           insights,
		RecentComparisons:  recentComparisons(st.comparisons, st.now.Add(-o.cfg.RecentWindow)),
		PatternMatches:     st.matches,
		Snapshot:           st.snapshot,
		PendingSuggestions: pending,
	}

	candidates := o.engine.Evaluate(in, active, st.now)
	for i := range candidates {
		candidates[i].ID = uuid.NewString()
	}

	created, err := o.store.InsertAlerts(ctx, candidates)
	if err != nil {
		return fmt.Errorf("save alerts: %w", err)
	}
	st.created = created
	res.Counts.AlertsCreated = len(created)
	res.Counts.AlertsDuplicate = len(candidates) - len(created)
	recordOutputs("alert", len(candidates), len(created))

	o.logger.WithFields(map[string]interface{}{
		"run_id":     res.RunID,
		"candidates": len(candidates),
		"created":    len(created),
		"active":     len(active),
	}).Info("Alerts stage completed")
	return nil
}

// runDelivery never fails the run: delivery is best-effort and the alerts are already saved
func (o *Orchestrator) runDelivery(ctx context.Context, st *runState, res *RunResult) error {
	report := o.dispatcher.Dispatch(ctx, st.created)
	res.Counts.AlertsDelivered = len(report.Delivered)
	res.Counts.AlertsDeliveryFailed = len(report.Failed)
	alertDeliveries.WithLabelValues("delivered").Add(float64(len(report.Delivered)))
	alertDeliveries.WithLabelValues("failed").Add(float64(len(report.Failed)))

	if err := o.store.MarkDelivered(ctx, report.Delivered, o.now()); err != nil {
		o.logger.WithError(err).Warn("Failed to mark alerts delivered")
	}
	return nil
}

func recentComparisons(all []contracts.OutcomeComparison, since time.Time) []contracts.OutcomeComparison {
	var out []contracts.OutcomeComparison
	for _, c := range all {
		if !c.CapturedAt.Before(since) {
			out = append(out, c)
		}
	}
	return out
}
