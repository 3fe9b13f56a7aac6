package orchestration

import "github.com/levelapp/levelgo/internal/models"

// ProgressEventKind identifies the lifecycle stage a progress event reports.
type ProgressEventKind string

const (
	EventBatchStart       ProgressEventKind = "batch_start"
	EventBatchComplete    ProgressEventKind = "batch_complete"
	EventScenarioStart    ProgressEventKind = "scenario_start"
	EventScenarioComplete ProgressEventKind = "scenario_complete"
	EventAttemptStart     ProgressEventKind = "attempt_start"
	EventAttemptComplete  ProgressEventKind = "attempt_complete"
)

// ProgressEvent is emitted as a batch run advances. Fields are populated
// according to Kind; Scenario and Attempt are zero values for batch-level
// events.
type ProgressEvent struct {
	Kind          ProgressEventKind
	BatchID       string
	ScenarioID    string
	ScenarioName  string
	AttemptNumber int
	TotalAttempts int
	Status        models.AttemptStatus
}

// ProgressListener receives progress events. Listeners must be safe for
// concurrent calls; scenarios run in parallel.
type ProgressListener func(ProgressEvent)
