package orchestration

import (
	"context"
	"log/slog"

	"github.com/levelapp/levelgo/internal/models"
)

// ScenarioOrchestrator runs the configured number of attempts for a single
// scenario. Attempts are independent: each one starts from the pristine
// scenario template, and a failed attempt never stops the remaining ones.
type ScenarioOrchestrator struct {
	runner   *AttemptRunner
	attempts int
	notify   func(ProgressEvent)
}

func NewScenarioOrchestrator(runner *AttemptRunner, attempts int, notify func(ProgressEvent)) *ScenarioOrchestrator {
	if attempts <= 0 {
		attempts = 1
	}
	if notify == nil {
		notify = func(ProgressEvent) {}
	}
	return &ScenarioOrchestrator{runner: runner, attempts: attempts, notify: notify}
}

// Run validates the scenario and executes all attempts. A configuration
// error is returned immediately, before any attempt runs. Cancellation stops
// launching further attempts but keeps the results gathered so far.
func (o *ScenarioOrchestrator) Run(ctx context.Context, scenario models.Scenario) (models.ScenarioResult, error) {
	result := models.ScenarioResult{
		ScenarioID:       scenario.ID,
		Name:             scenario.Name,
		InteractionCount: len(scenario.Interactions),
	}

	if err := scenario.Validate(); err != nil {
		return result, err
	}

	for n := 1; n <= o.attempts; n++ {
		if ctx.Err() != nil {
			slog.Debug("scenario cancelled", "scenario", scenario.ID, "completed_attempts", len(result.Attempts))
			break
		}

		o.notify(ProgressEvent{
			Kind:          EventAttemptStart,
			ScenarioID:    scenario.ID,
			ScenarioName:  scenario.Name,
			AttemptNumber: n,
			TotalAttempts: o.attempts,
		})

		attempt := o.runner.Run(ctx, scenario, n)
		result.Attempts = append(result.Attempts, attempt)

		o.notify(ProgressEvent{
			Kind:          EventAttemptComplete,
			ScenarioID:    scenario.ID,
			ScenarioName:  scenario.Name,
			AttemptNumber: n,
			TotalAttempts: o.attempts,
			Status:        attempt.Status,
		})
	}

	o.aggregate(&result)
	return result, nil
}

func (o *ScenarioOrchestrator) aggregate(result *models.ScenarioResult) {
	var verdicts []models.JudgeVerdict
	var totalTime float64
	for _, attempt := range result.Attempts {
		verdicts = append(verdicts, attempt.Verdicts()...)
		totalTime += attempt.ExecutionTime
	}

	result.AverageScore = models.AverageMatchLevel(verdicts)
	for _, v := range verdicts {
		if v.Status == models.VerdictError {
			result.ErroredVerdicts++
		}
	}
	if len(result.Attempts) > 0 {
		result.AvgExecutionTime = totalTime / float64(len(result.Attempts))
	}
}
