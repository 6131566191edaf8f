package patterns

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/projeval/internal/contracts"
)

func ptr[T any](v T) *T { return &v }

var riskPattern = contracts.DecisionPattern{
	ID:       "risk.low_delivery_reliability",
	Name:     "Low delivery reliability",
	Version:  1,
	Category: contracts.PatternRiskIndicator,
	Conditions: []contracts.PatternCondition{
		{Dimension: "contractor_reliability", Op: contracts.OpLess, Threshold: 40},
		{Dimension: "schedule_realism", Op: contracts.OpLess, Threshold: 50},
	},
}

func TestMatchPatterns_Operators(t *testing.T) {
	tests := []struct {
		op        contracts.ComparisonOp
		value     float64
		threshold float64
		want      bool
	}{
		{contracts.OpLess, 39.9, 40, true},
		{contracts.OpLess, 40, 40, false},
		{contracts.OpGreater, 40.1, 40, true},
		{contracts.OpGreater, 40, 40, false},
		{contracts.OpLessEqual, 40, 40, true},
		{contracts.OpGreaterEqual, 40, 40, true},
		{contracts.OpGreaterEqual, 39.99, 40, false},
		{contracts.OpEqual, 0.1 + 0.2, 0.3, true},
		{contracts.OpEqual, 41, 40, false},
		{contracts.ComparisonOp("!="), 41, 40, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			p := contracts.DecisionPattern{
				ID:         "p",
				Conditions: []contracts.PatternCondition{{Dimension: "d", Op: tt.op, Threshold: tt.threshold}},
			}
			got := MatchPatterns(contracts.ScoreVector{"d": tt.value}, []contracts.DecisionPattern{p})
			assert.Equal(t, tt.want, len(got) == 1, "%v %s %v", tt.value, tt.op, tt.threshold)
		})
	}
}

func TestMatchPatterns_AllConditionsRequired(t *testing.T) {
	lib := []contracts.DecisionPattern{riskPattern}

	assert.Len(t, MatchPatterns(contracts.ScoreVector{"contractor_reliability": 30, "schedule_realism": 45}, lib), 1)
	assert.Empty(t, MatchPatterns(contracts.ScoreVector{"contractor_reliability": 30, "schedule_realism": 55}, lib))
	// missing dimension: no partial credit
	assert.Empty(t, MatchPatterns(contracts.ScoreVector{"contractor_reliability": 30}, lib))
	assert.Empty(t, MatchPatterns(nil, lib))
}

func TestExtractValidatedMatches_RiskIndicatorNeedsBadOutcome(t *testing.T) {
	vectors := map[string]contracts.ScoreVector{
		"p-ok":     {"contractor_reliability": 20, "schedule_realism": 30},
		"p-rework": {"contractor_reliability": 20, "schedule_realism": 30},
	}
	comparisons := []contracts.OutcomeComparison{
		{ID: "c1", ProjectID: "p-ok", ActualSuccess: true, ActualRework: false},
		{ID: "c2", ProjectID: "p-rework", ActualSuccess: false, ActualRework: true},
	}

	matches := NewExtractor(zerolog.Nop()).ExtractValidatedMatches(comparisons, vectors, []contracts.DecisionPattern{riskPattern})

	require.Len(t, matches, 1)
	assert.Equal(t, "p-rework", matches[0].ProjectID)
	assert.Equal(t, riskPattern.ID, matches[0].PatternID)
	assert.Equal(t, "c2", matches[0].ComparisonID)
	assert.Equal(t, 1, matches[0].PatternVersion)
	assert.Contains(t, matches[0].Evidence, "rework occurred")
}

func TestExtractValidatedMatches_Categories(t *testing.T) {
	success := contracts.DecisionPattern{
		ID: "success.x", Name: "x", Version: 1, Category: contracts.PatternSuccessDriver,
		Conditions: []contracts.PatternCondition{{Dimension: "team_experience", Op: contracts.OpGreaterEqual, Threshold: 75}},
	}
	anomaly := contracts.DecisionPattern{
		ID: "cost.x", Name: "x", Version: 2, Category: contracts.PatternCostAnomaly,
		Conditions: []contracts.PatternCondition{{Dimension: "site_constraints", Op: contracts.OpGreaterEqual, Threshold: 70}},
	}
	lib := []contracts.DecisionPattern{success, anomaly}
	vector := contracts.ScoreVector{"team_experience": 80, "site_constraints": 90}

	tests := []struct {
		name string
		cmp  contracts.OutcomeComparison
		want []string
	}{
		{
			name: "clean success over budget",
			cmp:  contracts.OutcomeComparison{ProjectID: "p", ActualSuccess: true, CostDeltaPct: ptr(18.0)},
			want: []string{"success.x", "cost.x"},
		},
		{
			name: "success with rework is not a success driver",
			cmp:  contracts.OutcomeComparison{ProjectID: "p", ActualSuccess: true, ActualRework: true, CostDeltaPct: ptr(2.0)},
			want: nil,
		},
		{
			name: "exactly 10 percent is not an anomaly",
			cmp:  contracts.OutcomeComparison{ProjectID: "p", CostDeltaPct: ptr(10.0)},
			want: nil,
		},
		{
			name: "over-prediction is not an anomaly",
			cmp:  contracts.OutcomeComparison{ProjectID: "p", CostDeltaPct: ptr(-25.0)},
			want: nil,
		},
		{
			name: "unknown cost delta",
			cmp:  contracts.OutcomeComparison{ProjectID: "p"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := NewExtractor(zerolog.Nop()).ExtractValidatedMatches(
				[]contracts.OutcomeComparison{tt.cmp},
				map[string]contracts.ScoreVector{"p": vector},
				lib,
			)

			var ids []string
			for _, m := range matches {
				ids = append(ids, m.PatternID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestExtractValidatedMatches_DeduplicatesWithinRun(t *testing.T) {
	vectors := map[string]contracts.ScoreVector{"p": {"contractor_reliability": 10, "schedule_realism": 10}}
	cmp := contracts.OutcomeComparison{ProjectID: "p", ActualRework: true}

	matches := NewExtractor(zerolog.Nop()).ExtractValidatedMatches(
		[]contracts.OutcomeComparison{cmp, cmp},
		vectors,
		[]contracts.DecisionPattern{riskPattern},
	)
	require.Len(t, matches, 1)

	recorded := map[string]struct{}{matches[0].DedupKey(): {}}
	assert.Empty(t, ExcludeRecorded(matches, recorded))
	assert.Len(t, ExcludeRecorded(matches, nil), 1)
}

func TestExtractValidatedMatches_SkipsProjectsWithoutVector(t *testing.T) {
	matches := NewExtractor(zerolog.Nop()).ExtractValidatedMatches(
		[]contracts.OutcomeComparison{{ProjectID: "unknown", ActualRework: true}},
		map[string]contracts.ScoreVector{},
		[]contracts.DecisionPattern{riskPattern},
	)
	assert.Empty(t, matches)
}

func TestDefaultLibrary(t *testing.T) {
	lib, err := DefaultLibrary()
	require.NoError(t, err)

	assert.NotEmpty(t, lib.Version)
	assert.GreaterOrEqual(t, len(lib.Patterns), 3)

	categories := map[contracts.PatternCategory]int{}
	for _, p := range lib.Patterns {
		categories[p.Category]++
	}
	assert.Positive(t, categories[contracts.PatternRiskIndicator])
	assert.Positive(t, categories[contracts.PatternSuccessDriver])
	assert.Positive(t, categories[contracts.PatternCostAnomaly])

	p, ok := lib.Find("risk.low_delivery_reliability")
	require.True(t, ok)
	assert.Len(t, p.Conditions, 2)

	hash, err := Hash(lib)
	require.NoError(t, err)
	assert.Len(t, hash, 64)
	hash2, _ := Hash(lib)
	assert.Equal(t, hash, hash2, "hash not deterministic")
}

func TestParseLibrary_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "version: \"1\"\npatterns:\n  - id: a\n    name: a\n    version: 1\n    category: risk_indicator\n    weight: 3\n    conditions:\n      - {dimension: d, op: \"<\", threshold: 1}\n",
			want: "decode",
		},
		{
			name: "missing version",
			yaml: "patterns:\n  - id: a\n    name: a\n    version: 1\n    category: risk_indicator\n    conditions:\n      - {dimension: d, op: \"<\", threshold: 1}\n",
			want: "version",
		},
		{
			name: "unknown operator",
			yaml: "version: \"1\"\npatterns:\n  - id: a\n    name: a\n    version: 1\n    category: risk_indicator\n    conditions:\n      - {dimension: d, op: \"!=\", threshold: 1}\n",
			want: "unknown operator",
		},
		{
			name: "unknown category",
			yaml: "version: \"1\"\npatterns:\n  - id: a\n    name: a\n    version: 1\n    category: vibes\n    conditions:\n      - {dimension: d, op: \"<\", threshold: 1}\n",
			want: "unknown category",
		},
		{
			name: "empty conditions",
			yaml: "version: \"1\"\npatterns:\n  - id: a\n    name: a\n    version: 1\n    category: success_driver\n    conditions: []\n",
			want: "at least one condition",
		},
		{
			name: "duplicate id",
			yaml: "version: \"1\"\npatterns:\n  - id: a\n    name: a\n    version: 1\n    category: success_driver\n    conditions:\n      - {dimension: d, op: \">\", threshold: 1}\n  - id: a\n    name: b\n    version: 1\n    category: success_driver\n    conditions:\n      - {dimension: d, op: \">\", threshold: 2}\n",
			want: "duplicate id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLibrary([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidLibrary))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadLibrary_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	content := "version: \"test\"\npatterns:\n  - id: cost.flat\n    name: Flat\n    version: 3\n    category: cost_anomaly\n    conditions:\n      - {dimension: budget_fit, op: \"==\", threshold: 50}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	lib, err := LoadLibrary(path)
	require.NoError(t, err)
	require.Len(t, lib.Patterns, 1)
	assert.Equal(t, 3, lib.Patterns[0].Version)
	assert.Equal(t, contracts.OpEqual, lib.Patterns[0].Conditions[0].Op)

	_, err = LoadLibrary(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	def, err := LoadLibrary("")
	require.NoError(t, err)
	assert.NotEmpty(t, def.Patterns)
}
