package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/levelapp/levelgo/internal/models"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500ms", formatDuration(500*time.Millisecond))
	assert.Equal(t, "2s", formatDuration(2*time.Second))
}

func TestFormatBatchReport(t *testing.T) {
	avg := 2.8
	scAvg := 2.8
	result := &models.BatchResult{
		Metadata: models.ScenarioMetadata{
			BatchID:       "report-batch",
			TestName:      "nightly",
			ModelUsed:     "agent-1",
			EvaluatorType: "generic",
			AverageScore:  &avg,
			SuccessRate:   95.5,
		},
		Scenarios: []models.ScenarioResult{
			{
				ScenarioID:   "sc-1",
				Name:         "greeting",
				AverageScore: &scAvg,
				Attempts: []models.Attempt{
					{
						Status: models.AttemptSuccess,
						Interactions: []models.Interaction{
							{EvaluationResults: map[string]models.JudgeVerdict{
								"j": models.SuccessVerdict(3, ""),
							}},
						},
					},
				},
			},
			{ScenarioID: "sc-2", ConfigError: "scenario has no interactions"},
		},
	}

	out := FormatBatchReport(result)

	assert.Contains(t, out, "report-batch")
	assert.Contains(t, out, "nightly")
	assert.Contains(t, out, "Grade:        A")
	assert.Contains(t, out, "Success rate: 95.50%")
	assert.Contains(t, out, "greeting (sc-1)")
	assert.Contains(t, out, "invalid: scenario has no interactions")

	// the table header and separator line up
	lines := strings.Split(out, "\n")
	var headerIdx int
	for i, l := range lines {
		if strings.HasPrefix(l, "Scenario") {
			headerIdx = i
			break
		}
	}
	assert.True(t, strings.HasPrefix(lines[headerIdx+1], "---"))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "n/a", formatScore(nil))
	v := 1.5
	assert.Equal(t, "1.50", formatScore(&v))
}
