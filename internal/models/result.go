package models

import (
	"math"
	"time"
)

// AttemptStatus is the overall status of one attempt.
type AttemptStatus string

const (
	// AttemptSuccess means every interaction was scored without error.
	AttemptSuccess AttemptStatus = "success"
	// AttemptPartial means some agent calls or judge verdicts failed while
	// at least one succeeded.
	AttemptPartial AttemptStatus = "partial"
	// AttemptFailed means the attempt produced no usable interaction results,
	// typically because the agent was unreachable for every turn.
	AttemptFailed AttemptStatus = "failed"
)

// Attempt is one full pass over a scenario's interactions.
type Attempt struct {
	AttemptNumber int           `json:"attempt_number"`
	Interactions  []Interaction `json:"interactions"`
	ExecutionTime float64       `json:"execution_time"`
	Status        AttemptStatus `json:"status"`
}

// Verdicts returns all verdicts recorded in the attempt, in interaction order.
func (a *Attempt) Verdicts() []JudgeVerdict {
	var out []JudgeVerdict
	for _, in := range a.Interactions {
		for _, v := range in.EvaluationResults {
			out = append(out, v)
		}
	}
	return out
}

// ScenarioResult aggregates the attempts run for one scenario.
type ScenarioResult struct {
	ScenarioID       string    `json:"scenario_id"`
	Name             string    `json:"name,omitempty"`
	Attempts         []Attempt `json:"attempts"`
	AverageScore     *float64  `json:"average_score"`
	InteractionCount int       `json:"interaction_count"`
	ErroredVerdicts  int       `json:"errored_verdicts"`
	AvgExecutionTime float64   `json:"average_execution_time"`
	// ConfigError is set when the scenario definition was rejected and no
	// attempts were run for it.
	ConfigError string `json:"config_error,omitempty"`
}

// ScenarioMetadata is the batch-level summary block of a BatchResult.
type ScenarioMetadata struct {
	BatchID           string    `json:"batch_id"`
	TestName          string    `json:"test_name,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	ModelUsed         string    `json:"model_used"`
	EvaluatorType     string    `json:"evaluator_type"`
	TotalInteractions int       `json:"total_interactions"`
	AverageScore      *float64  `json:"average_score"`
	SuccessRate       float64   `json:"success_rate"`
	DurationSeconds   float64   `json:"total_duration_seconds"`
}

// BatchResult is the exportable result document for one batch run. It is
// created fresh per run and treated as immutable once handed to an exporter.
type BatchResult struct {
	Metadata  ScenarioMetadata `json:"scenario_metadata"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// AllVerdicts flattens every verdict in the result document.
func (r *BatchResult) AllVerdicts() []JudgeVerdict {
	var out []JudgeVerdict
	for _, sc := range r.Scenarios {
		for i := range sc.Attempts {
			out = append(out, sc.Attempts[i].Verdicts()...)
		}
	}
	return out
}

// ComputeAverageScore recomputes the unweighted mean match level over all
// successful verdicts in the document. Returns nil when no verdict succeeded.
func (r *BatchResult) ComputeAverageScore() *float64 {
	return AverageMatchLevel(r.AllVerdicts())
}

// ComputeSuccessRate recomputes the percentage of successful verdicts over
// all verdicts, rounded to two decimals. Returns 0 when there are no verdicts.
func (r *BatchResult) ComputeSuccessRate() float64 {
	return SuccessRate(r.AllVerdicts())
}

// AverageMatchLevel returns the mean match level of the successful verdicts,
// or nil when none succeeded.
func AverageMatchLevel(verdicts []JudgeVerdict) *float64 {
	total := 0
	count := 0
	for _, v := range verdicts {
		if v.Succeeded() {
			total += *v.MatchLevel
			count++
		}
	}
	if count == 0 {
		return nil
	}
	avg := float64(total) / float64(count)
	return &avg
}

// SuccessRate returns successful verdicts over total verdicts as a
// percentage with two-decimal precision.
func SuccessRate(verdicts []JudgeVerdict) float64 {
	if len(verdicts) == 0 {
		return 0
	}
	succeeded := 0
	for _, v := range verdicts {
		if v.Status == VerdictSuccess {
			succeeded++
		}
	}
	rate := float64(succeeded) / float64(len(verdicts)) * 100
	return math.Round(rate*100) / 100
}
