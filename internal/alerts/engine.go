package alerts

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/projeval/internal/contracts"
)

// Inputs everything one evaluation looks at
type Inputs struct {
	PriceEvents        []contracts.PriceChangeEvent
	Insights           []contracts.MarketInsight
	RecentComparisons  []contracts.OutcomeComparison
	PatternMatches     []contracts.ProjectPatternMatch
	Snapshot           *contracts.AccuracySnapshot
	PendingSuggestions []contracts.BenchmarkSuggestion
}

// rule produces zero or more candidates; rules are independent of each other
type rule func(in Inputs) []contracts.PlatformAlert

// Engine 알림 규칙 평가 + 중복 제거
// ⭐ SSOT: 중복 판정 키는 contracts.AlertDedupKey
type Engine struct {
	th    contracts.AlertThresholds
	rules []rule
	log   zerolog.Logger
}

// NewEngine 기본 임계값으로 엔진 생성
func NewEngine(log zerolog.Logger) *Engine {
	return NewEngineWithThresholds(contracts.DefaultAlertThresholds(), log)
}

// NewEngineWithThresholds 임계값 지정하여 엔진 생성
func NewEngineWithThresholds(th contracts.AlertThresholds, log zerolog.Logger) *Engine {
	e := &Engine{
		th:  th,
		log: log.With().Str("component", "alerts.engine").Logger(),
	}
	e.rules = []rule{
		e.priceShock,
		e.projectAtRisk,
		e.accuracyDegraded,
		e.benchmarkDrift,
		e.marketOpportunity,
		e.estimationMissCluster,
	}
	return e
}

// Evaluate runs every rule and drops candidates whose dedup key matches an
// active alert or an earlier candidate. Returned alerts are active, stamped
// with now and their severity expiry, and carry no ID yet.
func (e *Engine) Evaluate(in Inputs, active []contracts.PlatformAlert, now time.Time) []contracts.PlatformAlert {
	seen := make(map[string]struct{}, len(active))
	for _, a := range active {
		if a.Status == contracts.AlertActive {
			seen[a.DedupKey()] = struct{}{}
		}
	}

	var out []contracts.PlatformAlert
	candidates, duplicates := 0, 0

	for _, r := range e.rules {
		for _, a := range r(in) {
			candidates++
			key := a.DedupKey()
			if _, dup := seen[key]; dup {
				duplicates++
				continue
			}
			seen[key] = struct{}{}

			a.Status = contracts.AlertActive
			a.CreatedAt = now
			a.ExpiresAt = now.Add(a.Severity.Expiry())
			out = append(out, a)
		}
	}

	e.log.Debug().
		Int("candidates", candidates).
		Int("duplicates", duplicates).
		Int("new", len(out)).
		Msg("alert evaluation completed")

	return out
}

// =============================================================================
// Rules
// =============================================================================

func (e *Engine) priceShock(in Inputs) []contracts.PlatformAlert {
	var out []contracts.PlatformAlert
	for _, ev := range in.PriceEvents {
		if ev.Severity != contracts.PriceSignificant {
			continue
		}
		change := ev.ChangePct
		out = append(out, contracts.PlatformAlert{
			Type:     contracts.AlertPriceShock,
			Severity: contracts.SeverityCritical,
			Title:    fmt.Sprintf("Price shock: %s %+.1f%%", ev.Category, ev.ChangePct),
			Message: fmt.Sprintf("%s prices moved %+.1f%% (%s), affecting %d active project(s).",
				ev.Category, ev.ChangePct, regionOrAll(ev.Region), len(ev.AffectedProjectIDs)),
			SuggestedAction:    fmt.Sprintf("Re-check %s allowances in affected cost plans and lock supplier quotes where possible.", ev.Category),
			AffectedProjectIDs: uniqueSorted(ev.AffectedProjectIDs),
			AffectedCategories: []string{ev.Category},
			Trigger:            contracts.AlertTrigger{PriceEventID: ev.ID, PriceChangePct: &change},
		})
	}
	return out
}

// projectAtRisk one alert per project with validated risk_indicator matches
func (e *Engine) projectAtRisk(in Inputs) []contracts.PlatformAlert {
	byProject := make(map[string][]contracts.ProjectPatternMatch)
	for _, m := range in.PatternMatches {
		if m.Category == contracts.PatternRiskIndicator {
			byProject[m.ProjectID] = append(byProject[m.ProjectID], m)
		}
	}

	projects := make([]string, 0, len(byProject))
	for p := range byProject {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	var out []contracts.PlatformAlert
	for _, p := range projects {
		matches := byProject[p]
		ids := make([]string, 0, len(matches))
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.PatternID)
			names = append(names, m.PatternName)
		}
		sort.Strings(ids)

		out = append(out, contracts.PlatformAlert{
			Type:               contracts.AlertProjectAtRisk,
			Severity:           contracts.SeverityHigh,
			Title:              fmt.Sprintf("Project %s matches a known risk pattern", p),
			Message:            fmt.Sprintf("Validated risk pattern(s): %s.", strings.Join(names, ", ")),
			SuggestedAction:    "Review the project's delivery plan and contractor reliability before the next stage gate.",
			AffectedProjectIDs: []string{p},
			Trigger:            contracts.AlertTrigger{PatternIDs: ids},
		})
	}
	return out
}

func (e *Engine) accuracyDegraded(in Inputs) []contracts.PlatformAlert {
	s := in.Snapshot
	if s == nil || s.GradedCount() < e.th.MinGradedForAccuracy {
		return nil
	}
	if s.OverallAccuracyPct.Float64() >= e.th.MinAccuracyPct {
		return nil
	}

	pct := s.OverallAccuracyPct
	return []contracts.PlatformAlert{{
		Type:     contracts.AlertAccuracyDegraded,
		Severity: contracts.SeverityHigh,
		Title:    fmt.Sprintf("Prediction accuracy dropped to %.1f%%", pct.Float64()),
		Message: fmt.Sprintf("Only %d of %d graded comparisons reached grade A or B (threshold %.0f%%).",
			s.GradeACount+s.GradeBCount, s.GradedCount(), e.th.MinAccuracyPct),
		SuggestedAction: "Review pending benchmark suggestions and weight change proposals.",
		Trigger: contracts.AlertTrigger{
			OverallAccuracyPct: &pct,
			GradedComparisons:  s.GradedCount(),
		},
	}}
}

// benchmarkDrift uses the uncapped drift, so a capped ±15% proposal still counts when the raw drift exceeds it
func (e *Engine) benchmarkDrift(in Inputs) []contracts.PlatformAlert {
	var out []contracts.PlatformAlert
	for _, s := range in.PendingSuggestions {
		if s.Status != contracts.SuggestionPending || s.Changes.Cost == nil {
			continue
		}
		drift := s.Changes.Cost.RawDriftPct
		if math.Abs(drift) <= e.th.BenchmarkDriftPct {
			continue
		}
		out = append(out, contracts.PlatformAlert{
			Type:               contracts.AlertBenchmarkDrift,
			Severity:           contracts.SeverityMedium,
			Title:              fmt.Sprintf("Benchmark drift for %s: %+.1f%%", s.GroupKey(), drift),
			Message:            fmt.Sprintf("Outcomes in %s drift %+.1f%% from the cost benchmark (n=%d).", s.GroupKey(), drift, s.SampleSize),
			SuggestedAction:    "Review and accept or reject the pending benchmark suggestion.",
			AffectedCategories: []string{s.GroupKey()},
			Trigger:            contracts.AlertTrigger{SuggestionID: s.ID, DriftPct: &drift},
		})
	}
	return out
}

func (e *Engine) marketOpportunity(in Inputs) []contracts.PlatformAlert {
	var out []contracts.PlatformAlert
	for _, ins := range in.Insights {
		if ins.Type != contracts.InsightOpportunity || ins.Confidence < e.th.OpportunityConfidence {
			continue
		}
		conf := ins.Confidence
		out = append(out, contracts.PlatformAlert{
			Type:     contracts.AlertMarketOpportunity,
			Severity: contracts.SeverityMedium,
			Title:    fmt.Sprintf("Market opportunity: %s", ins.Title),
			Message: fmt.Sprintf("%s: potential saving %.1f%% (confidence %.0f%%).",
				ins.Category, ins.PotentialSavingsPct, ins.Confidence*100),
			SuggestedAction:    "Consider re-tendering or re-pricing the affected packages.",
			AffectedProjectIDs: uniqueSorted(ins.AffectedProjectIDs),
			AffectedCategories: []string{ins.Category},
			Trigger:            contracts.AlertTrigger{InsightID: ins.ID, InsightConfidence: &conf},
		})
	}
	return out
}

// estimationMissCluster fires when several recent comparisons missed by more than 20%
func (e *Engine) estimationMissCluster(in Inputs) []contracts.PlatformAlert {
	var projects, comparisonIDs []string
	for _, c := range in.RecentComparisons {
		if c.CostBand != contracts.BandOutside20 {
			continue
		}
		projects = append(projects, c.ProjectID)
		if c.ID != "" {
			comparisonIDs = append(comparisonIDs, c.ID)
		}
	}
	projects = uniqueSorted(projects)
	if len(projects) < e.th.MissClusterSize {
		return nil
	}
	sort.Strings(comparisonIDs)

	return []contracts.PlatformAlert{{
		Type:               contracts.AlertEstimationMiss,
		Severity:           contracts.SeverityHigh,
		Title:              fmt.Sprintf("%d recent projects missed cost estimates by more than 20%%", len(projects)),
		Message:            fmt.Sprintf("Projects outside the 20%% band: %s.", strings.Join(projects, ", ")),
		SuggestedAction:    "Check whether a common typology, region or supplier explains the misses.",
		AffectedProjectIDs: projects,
		Trigger:            contracts.AlertTrigger{ComparisonIDs: comparisonIDs},
	}}
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := set[s]; ok || s == "" {
			continue
		}
		set[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func regionOrAll(region string) string {
	if region == "" {
		return "all regions"
	}
	return region
}
