package orchestration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelapp/levelgo/internal/driver"
	"github.com/levelapp/levelgo/internal/judges"
	"github.com/levelapp/levelgo/internal/models"
)

func TestScenarioOrchestrator_RunsAllAttempts(t *testing.T) {
	drv := driver.NewMockDriver()
	judge := judges.NewStubJudge("stub", models.MatchGood, "")
	runner := NewAttemptRunner([]judges.Judge{judge}, drv, driver.Options{}, 2)

	orch := NewScenarioOrchestrator(runner, 3, nil)
	result, err := orch.Run(context.Background(), twoTurnScenario())
	require.NoError(t, err)

	require.Len(t, result.Attempts, 3)
	for i, attempt := range result.Attempts {
		assert.Equal(t, i+1, attempt.AttemptNumber)
		assert.Equal(t, models.AttemptSuccess, attempt.Status)
	}
	assert.Equal(t, 2, result.InteractionCount)
	require.NotNil(t, result.AverageScore)
	assert.InDelta(t, float64(models.MatchGood), *result.AverageScore, 1e-9)
	assert.Zero(t, result.ErroredVerdicts)
}

func TestScenarioOrchestrator_FailedAttemptNeverShortCircuits(t *testing.T) {
	// first attempt fails every turn, later attempts succeed
	drv := driver.NewMockDriver().
		Fail("down").Fail("down").
		Reply("ok").Reply("ok").
		Reply("ok").Reply("ok")
	judge := judges.NewStubJudge("stub", models.MatchExcellent, "")
	runner := NewAttemptRunner([]judges.Judge{judge}, drv, driver.Options{}, 2)

	orch := NewScenarioOrchestrator(runner, 3, nil)
	result, err := orch.Run(context.Background(), twoTurnScenario())
	require.NoError(t, err)

	require.Len(t, result.Attempts, 3)
	assert.Equal(t, models.AttemptFailed, result.Attempts[0].Status)
	assert.Equal(t, models.AttemptSuccess, result.Attempts[1].Status)
	assert.Equal(t, models.AttemptSuccess, result.Attempts[2].Status)

	// 4 scored verdicts out of 6 total
	assert.Equal(t, 2, result.ErroredVerdicts)
	require.NotNil(t, result.AverageScore)
	assert.InDelta(t, float64(models.MatchExcellent), *result.AverageScore, 1e-9)
}

func TestScenarioOrchestrator_ConfigErrorReturnedBeforeAnyAttempt(t *testing.T) {
	drv := driver.NewMockDriver()
	judge := judges.NewStubJudge("stub", models.MatchGood, "")
	runner := NewAttemptRunner([]judges.Judge{judge}, drv, driver.Options{}, 2)

	orch := NewScenarioOrchestrator(runner, 2, nil)
	result, err := orch.Run(context.Background(), models.Scenario{ID: "empty"})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrScenarioConfig)
	assert.Empty(t, result.Attempts)
	assert.Empty(t, drv.Prompts)
}

func TestScenarioOrchestrator_CancellationKeepsCompletedAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	drv := driver.NewMockDriver()
	judge := judges.NewStubJudge("stub", models.MatchGood, "")
	runner := NewAttemptRunner([]judges.Judge{judge}, drv, driver.Options{}, 2)

	attempts := 0
	notify := func(ev ProgressEvent) {
		if ev.Kind == EventAttemptComplete {
			attempts++
			if attempts == 2 {
				cancel()
			}
		}
	}

	orch := NewScenarioOrchestrator(runner, 5, notify)
	result, err := orch.Run(ctx, twoTurnScenario())
	require.NoError(t, err)

	assert.Len(t, result.Attempts, 2)
}
