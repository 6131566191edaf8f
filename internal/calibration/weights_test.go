package calibration

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/projeval/internal/contracts"
)

type missSpec struct {
	decision contracts.DecisionLabel
	success  bool
	contribs []contracts.DimensionContribution
}

func buildMisses(specs []missSpec) ([]contracts.OutcomeComparison, map[string][]contracts.DimensionContribution) {
	comparisons := make([]contracts.OutcomeComparison, 0, len(specs))
	contribs := make(map[string][]contracts.DimensionContribution, len(specs))
	for i, s := range specs {
		id := fmt.Sprintf("p-%d", i)
		comparisons = append(comparisons, contracts.OutcomeComparison{
			ProjectID:              id,
			PredictedDecision:      s.decision,
			ActualSuccess:          s.success,
			ScorePredictionCorrect: false,
		})
		contribs[id] = s.contribs
	}
	return comparisons, contribs
}

func repeat(n int, s missSpec) []missSpec {
	out := make([]missSpec, n)
	for i := range out {
		out[i] = s
	}
	return out
}

var (
	falseNegativeOnSite = missSpec{
		decision: contracts.DecisionNotValidated,
		success:  true,
		contribs: []contracts.DimensionContribution{
			{Dimension: "site_constraints", Contribution: -12},
			{Dimension: "budget_fit", Contribution: -3},
			{Dimension: "team_experience", Contribution: 8},
		},
	}
	falsePositiveOnBudget = missSpec{
		decision: contracts.DecisionValidated,
		success:  false,
		contribs: []contracts.DimensionContribution{
			{Dimension: "budget_fit", Contribution: 15},
			{Dimension: "site_constraints", Contribution: -5},
		},
	}
)

func TestAnalyze_TooFewMisses(t *testing.T) {
	comparisons, contribs := buildMisses(repeat(4, falseNegativeOnSite))

	proposals := NewWeightAnalyzer(zerolog.Nop()).Analyze(comparisons, contribs, "v3")
	assert.Empty(t, proposals)
}

func TestAnalyze_FalseNegativeDominance(t *testing.T) {
	specs := append(repeat(5, falseNegativeOnSite), missSpec{
		decision: contracts.DecisionNotValidated,
		success:  true,
		contribs: []contracts.DimensionContribution{{Dimension: "budget_fit", Contribution: -20}},
	})
	comparisons, contribs := buildMisses(specs)

	proposals := NewWeightAnalyzer(zerolog.Nop()).Analyze(comparisons, contribs, "v3")

	require.Len(t, proposals, 1)
	p := proposals[0]
	assert.Equal(t, "site_constraints", p.Dimension)
	assert.Equal(t, contracts.MissFalseNegative, p.MissKind)
	assert.Equal(t, contracts.ActionReducePenalty, p.Action)
	assert.Equal(t, 5.0, p.AdjustmentPct)
	assert.Equal(t, 5, p.Occurrences)
	assert.Equal(t, 6, p.CategoryTotal)
	assert.Equal(t, "v3", p.LogicVersionID)
	assert.Equal(t, contracts.ChangeProposed, p.Status)
	assert.Contains(t, p.Rationale, "Reduce penalty weighting for site_constraints by 5%")
}

func TestAnalyze_BothCategories(t *testing.T) {
	specs := append(repeat(5, falseNegativeOnSite), repeat(6, falsePositiveOnBudget)...)
	comparisons, contribs := buildMisses(specs)

	proposals := NewWeightAnalyzer(zerolog.Nop()).Analyze(comparisons, contribs, "v3")

	require.Len(t, proposals, 2)
	assert.Equal(t, contracts.MissFalseNegative, proposals[0].MissKind)
	assert.Equal(t, "site_constraints", proposals[0].Dimension)
	assert.Equal(t, contracts.MissFalsePositive, proposals[1].MissKind)
	assert.Equal(t, "budget_fit", proposals[1].Dimension)
	assert.Equal(t, contracts.ActionIncreaseStringency, proposals[1].Action)
}

func TestAnalyze_NoMajority(t *testing.T) {
	other := missSpec{
		decision: contracts.DecisionNotValidated,
		success:  true,
		contribs: []contracts.DimensionContribution{{Dimension: "permitting", Contribution: -9}},
	}
	// 5 of 10 is not more than half
	comparisons, contribs := buildMisses(append(repeat(5, falseNegativeOnSite), repeat(5, other)...))

	proposals := NewWeightAnalyzer(zerolog.Nop()).Analyze(comparisons, contribs, "v3")
	assert.Empty(t, proposals)
}

func TestAnalyze_ConditionalMissesNotTallied(t *testing.T) {
	conditional := missSpec{
		decision: contracts.DecisionConditional,
		success:  true,
		contribs: []contracts.DimensionContribution{{Dimension: "site_constraints", Contribution: -30}},
	}
	comparisons, contribs := buildMisses(append(repeat(4, falseNegativeOnSite), repeat(6, conditional)...))

	// 10 misses clear the floor, but only 4 are false negatives
	proposals := NewWeightAnalyzer(zerolog.Nop()).Analyze(comparisons, contribs, "v3")
	assert.Empty(t, proposals)
}

func TestAnalyze_IgnoresCorrectPredictions(t *testing.T) {
	comparisons, contribs := buildMisses(repeat(6, falseNegativeOnSite))
	for i := range comparisons {
		comparisons[i].ScorePredictionCorrect = true
	}

	assert.Empty(t, NewWeightAnalyzer(zerolog.Nop()).Analyze(comparisons, contribs, "v3"))
}

func TestDrivingDimension(t *testing.T) {
	tests := []struct {
		name     string
		contribs []contracts.DimensionContribution
		kind     contracts.MissKind
		want     string
		found    bool
	}{
		{
			name:     "most negative for false negative",
			contribs: []contracts.DimensionContribution{{Dimension: "a", Contribution: -1}, {Dimension: "b", Contribution: -7}, {Dimension: "c", Contribution: 4}},
			kind:     contracts.MissFalseNegative,
			want:     "b",
			found:    true,
		},
		{
			name:     "most positive for false positive",
			contribs: []contracts.DimensionContribution{{Dimension: "a", Contribution: -1}, {Dimension: "b", Contribution: -7}, {Dimension: "c", Contribution: 4}},
			kind:     contracts.MissFalsePositive,
			want:     "c",
			found:    true,
		},
		{
			name:     "tie resolves lexicographically",
			contribs: []contracts.DimensionContribution{{Dimension: "zoning", Contribution: 5}, {Dimension: "access", Contribution: 5}},
			kind:     contracts.MissFalsePositive,
			want:     "access",
			found:    true,
		},
		{
			name:     "no negative contribution",
			contribs: []contracts.DimensionContribution{{Dimension: "a", Contribution: 0}, {Dimension: "b", Contribution: 3}},
			kind:     contracts.MissFalseNegative,
			found:    false,
		},
		{
			name:  "no contributions",
			kind:  contracts.MissFalsePositive,
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := drivingDimension(tt.contribs, tt.kind)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}
