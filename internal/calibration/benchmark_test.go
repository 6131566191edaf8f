package calibration

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/projeval/internal/contracts"
)

func withSignals(projectID string, signals ...contracts.LearningSignal) contracts.OutcomeComparison {
	return contracts.OutcomeComparison{
		ProjectID: projectID,
		CostBand:  contracts.BandOutside20,
		Grade:     contracts.GradeC,
		Signals:   signals,
	}
}

func costUnder(mag float64) contracts.LearningSignal {
	return contracts.LearningSignal{Type: contracts.SignalCostUnderPredicted, Magnitude: mag, Direction: contracts.DirectionIncrease}
}

func costOver(mag float64) contracts.LearningSignal {
	return contracts.LearningSignal{Type: contracts.SignalCostOverPredicted, Magnitude: mag, Direction: contracts.DirectionDecrease}
}

func riskUnder() contracts.LearningSignal {
	return contracts.LearningSignal{Type: contracts.SignalRiskUnderPredicted, Magnitude: 20, Direction: contracts.DirectionIncrease}
}

func riskOver() contracts.LearningSignal {
	return contracts.LearningSignal{Type: contracts.SignalRiskOverPredicted, Magnitude: 20, Direction: contracts.DirectionDecrease}
}

// fixture builds n comparisons in one group, signal i produced by gen(i)
func fixture(typology, tier string, n int, gen func(i int) []contracts.LearningSignal) ([]contracts.OutcomeComparison, map[string]contracts.ProjectClassification) {
	comparisons := make([]contracts.OutcomeComparison, 0, n)
	cls := make(map[string]contracts.ProjectClassification, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%s-%d", typology, tier, i)
		comparisons = append(comparisons, withSignals(id, gen(i)...))
		cls[id] = contracts.ProjectClassification{ProjectID: id, Typology: typology, Tier: tier}
	}
	return comparisons, cls
}

func merge(dst, src map[string]contracts.ProjectClassification) {
	for k, v := range src {
		dst[k] = v
	}
}

func TestGenerateSuggestions_CappedHighConfidence(t *testing.T) {
	comparisons, cls := fixture("office", "standard", 6, func(int) []contracts.LearningSignal {
		return []contracts.LearningSignal{costUnder(30)}
	})

	suggestions := NewCalibrator(zerolog.Nop()).GenerateSuggestions(comparisons, cls)

	require.Len(t, suggestions, 1)
	s := suggestions[0]
	require.NotNil(t, s.Changes.Cost)
	assert.Nil(t, s.Changes.Risk)
	assert.Equal(t, "+15.0%", s.Changes.Cost.Display())
	assert.Equal(t, 30.0, s.Changes.Cost.RawDriftPct)
	assert.Equal(t, "0.9000", s.Confidence.String())
	assert.Equal(t, contracts.SuggestionPending, s.Status)
	assert.Equal(t, "office", s.Typology)
	assert.Equal(t, "standard", s.Tier)
	assert.Equal(t, 6, s.SampleSize)
	assert.Contains(t, s.Rationale, "capped")
}

func TestGenerateSuggestions_SmallGroupDropped(t *testing.T) {
	comparisons, cls := fixture("school", "premium", 2, func(int) []contracts.LearningSignal {
		return []contracts.LearningSignal{costUnder(30), riskUnder()}
	})

	suggestions := NewCalibrator(zerolog.Nop()).GenerateSuggestions(comparisons, cls)
	assert.Empty(t, suggestions)
}

func TestGenerateSuggestions_Confidence(t *testing.T) {
	tests := []struct {
		name     string
		dominant int
		want     string
	}{
		{"three dominant", 3, "0.7500"},
		{"four dominant", 4, "0.7500"},
		{"five dominant", 5, "0.9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comparisons, cls := fixture("office", "standard", tt.dominant, func(int) []contracts.LearningSignal {
				return []contracts.LearningSignal{costOver(8)}
			})

			suggestions := NewCalibrator(zerolog.Nop()).GenerateSuggestions(comparisons, cls)

			require.Len(t, suggestions, 1)
			assert.Equal(t, tt.want, suggestions[0].Confidence.String())
			assert.Equal(t, "-8.0%", suggestions[0].Changes.Cost.Display())
			assert.Equal(t, contracts.DirectionDecrease, suggestions[0].Changes.Cost.Direction)
		})
	}
}

func TestGenerateSuggestions_DominanceRule(t *testing.T) {
	tests := []struct {
		name  string
		under int
		over  int
		want  bool
	}{
		{"5 vs 2 dominates", 5, 2, true},
		{"4 vs 2 is exactly double", 4, 2, false},
		{"3 vs 1 dominates", 3, 1, true},
		{"2 vs 0 below floor", 2, 0, false},
		{"6 vs 3 oscillating", 6, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comparisons, cls := fixture("office", "standard", tt.under+tt.over+1, func(i int) []contracts.LearningSignal {
				switch {
				case i < tt.under:
					return []contracts.LearningSignal{costUnder(12)}
				case i < tt.under+tt.over:
					return []contracts.LearningSignal{costOver(12)}
				default:
					return nil
				}
			})

			suggestions := NewCalibrator(zerolog.Nop()).GenerateSuggestions(comparisons, cls)
			assert.Equal(t, tt.want, len(suggestions) == 1)
		})
	}
}

func TestGenerateSuggestions_RiskFixedDeltas(t *testing.T) {
	underCmp, underCls := fixture("hospital", "premium", 4, func(int) []contracts.LearningSignal {
		return []contracts.LearningSignal{riskUnder()}
	})
	overCmp, overCls := fixture("warehouse", "standard", 3, func(int) []contracts.LearningSignal {
		return []contracts.LearningSignal{riskOver()}
	})
	merge(underCls, overCls)

	suggestions := NewCalibrator(zerolog.Nop()).GenerateSuggestions(append(underCmp, overCmp...), underCls)

	require.Len(t, suggestions, 2)
	// ordered by group key
	assert.Equal(t, "hospital", suggestions[0].Typology)
	require.NotNil(t, suggestions[0].Changes.Risk)
	assert.Nil(t, suggestions[0].Changes.Cost)
	assert.Equal(t, 0.10, suggestions[0].Changes.Risk.MultiplierDelta)
	assert.Equal(t, "+0.10", suggestions[0].Changes.Risk.Display())

	assert.Equal(t, "warehouse", suggestions[1].Typology)
	require.NotNil(t, suggestions[1].Changes.Risk)
	assert.Equal(t, -0.05, suggestions[1].Changes.Risk.MultiplierDelta)
	assert.Equal(t, "0.7500", suggestions[1].Confidence.String())
}

func TestGenerateSuggestions_ConfidenceUsesLargestDominantCount(t *testing.T) {
	// cost dominant with 3, risk dominant with 5
	comparisons, cls := fixture("office", "premium", 5, func(i int) []contracts.LearningSignal {
		if i < 3 {
			return []contracts.LearningSignal{costUnder(9), riskUnder()}
		}
		return []contracts.LearningSignal{riskUnder()}
	})

	suggestions := NewCalibrator(zerolog.Nop()).GenerateSuggestions(comparisons, cls)

	require.Len(t, suggestions, 1)
	require.NotNil(t, suggestions[0].Changes.Cost)
	require.NotNil(t, suggestions[0].Changes.Risk)
	assert.Equal(t, "+9.0%", suggestions[0].Changes.Cost.Display())
	assert.Equal(t, "0.9000", suggestions[0].Confidence.String())
}

func TestGenerateSuggestions_NoSignalsNoSuggestion(t *testing.T) {
	comparisons, cls := fixture("office", "standard", 8, func(int) []contracts.LearningSignal {
		return []contracts.LearningSignal{{Type: contracts.SignalScoreCorrectlyPredicted, Magnitude: 1, Direction: contracts.DirectionNone}}
	})

	assert.Empty(t, NewCalibrator(zerolog.Nop()).GenerateSuggestions(comparisons, cls))
}

func TestGenerateSuggestions_UnclassifiedIgnored(t *testing.T) {
	comparisons, _ := fixture("office", "standard", 6, func(int) []contracts.LearningSignal {
		return []contracts.LearningSignal{costUnder(30)}
	})

	assert.Empty(t, NewCalibrator(zerolog.Nop()).GenerateSuggestions(comparisons, nil))
}
