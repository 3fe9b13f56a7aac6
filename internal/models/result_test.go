package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverageMatchLevel(t *testing.T) {
	tests := []struct {
		name     string
		verdicts []JudgeVerdict
		want     *float64
	}{
		{
			name: "no verdicts",
			want: nil,
		},
		{
			name: "all errored",
			verdicts: []JudgeVerdict{
				ErrorVerdict("judge unreachable"),
				ErrorVerdict("bad output"),
			},
			want: nil,
		},
		{
			name: "mixed levels",
			verdicts: []JudgeVerdict{
				SuccessVerdict(3, "excellent"),
				SuccessVerdict(1, "fair"),
				SuccessVerdict(2, "good"),
			},
			want: floatPtr(2.0),
		},
		{
			name: "errors excluded from the mean",
			verdicts: []JudgeVerdict{
				SuccessVerdict(3, "excellent"),
				ErrorVerdict("timeout"),
				SuccessVerdict(0, "poor"),
			},
			want: floatPtr(1.5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AverageMatchLevel(tt.verdicts)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestSuccessRate(t *testing.T) {
	verdicts := []JudgeVerdict{
		SuccessVerdict(2, "good"),
		SuccessVerdict(3, "excellent"),
		ErrorVerdict("timeout"),
	}
	// 2/3 = 66.666..., rounded to two decimals
	assert.Equal(t, 66.67, SuccessRate(verdicts))
}

func TestSuccessRate_Empty(t *testing.T) {
	assert.Equal(t, 0.0, SuccessRate(nil))
}

func TestBatchResultAggregates(t *testing.T) {
	result := BatchResult{
		Scenarios: []ScenarioResult{
			{
				ScenarioID: "a",
				Attempts: []Attempt{
					{Interactions: []Interaction{
						{EvaluationResults: map[string]JudgeVerdict{
							"judge": SuccessVerdict(2, "good"),
						}},
					}},
				},
			},
			{
				ScenarioID: "b",
				Attempts: []Attempt{
					{Interactions: []Interaction{
						{EvaluationResults: map[string]JudgeVerdict{
							"judge": ErrorVerdict("unreachable"),
						}},
					}},
				},
			},
		},
	}

	require.Len(t, result.AllVerdicts(), 2)

	avg := result.ComputeAverageScore()
	require.NotNil(t, avg)
	assert.InDelta(t, 2.0, *avg, 1e-9)
	assert.Equal(t, 50.0, result.ComputeSuccessRate())
}

func TestSuccessVerdict_ClampsLevel(t *testing.T) {
	low := SuccessVerdict(-2, "below range")
	require.NotNil(t, low.MatchLevel)
	assert.Equal(t, MatchPoor, *low.MatchLevel)

	high := SuccessVerdict(9, "above range")
	require.NotNil(t, high.MatchLevel)
	assert.Equal(t, MatchExcellent, *high.MatchLevel)
}

func TestErrorVerdict(t *testing.T) {
	v := ErrorVerdict("judge %s: %v", "primary", "boom")
	assert.Equal(t, VerdictError, v.Status)
	assert.Nil(t, v.MatchLevel)
	assert.Equal(t, "judge primary: boom", v.Justification)
	assert.False(t, v.Succeeded())
}

func floatPtr(f float64) *float64 { return &f }
