package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/levelapp/levelgo/internal/driver"
	"github.com/levelapp/levelgo/internal/judges"
	"github.com/levelapp/levelgo/internal/models"
)

const (
	DefaultAttempts        = 1
	DefaultScenarioWorkers = 4
	DefaultJudgeWorkers    = 4
)

// Config is the read-only run configuration for one batch evaluation.
type Config struct {
	// TestName labels the run in the result document.
	TestName string

	// ModelID identifies the agent model the driver talks to. Recorded in the
	// result metadata even when all replies are preset.
	ModelID string

	// Attempts is the number of independent passes per scenario.
	Attempts int

	// ScenarioWorkers bounds how many scenarios run concurrently.
	ScenarioWorkers int

	// JudgeWorkers bounds concurrent interaction scoring within an attempt.
	JudgeWorkers int

	// CarryContext forwards prior exchanges of the attempt to the agent on
	// each turn.
	CarryContext bool
}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.ScenarioWorkers <= 0 {
		c.ScenarioWorkers = DefaultScenarioWorkers
	}
	if c.JudgeWorkers <= 0 {
		c.JudgeWorkers = DefaultJudgeWorkers
	}
	return c
}

// Coordinator runs a test batch end to end: scenario fan-out, attempt
// execution, scoring, and batch-level aggregation.
type Coordinator struct {
	cfg    Config
	judges []judges.Judge
	driver driver.Driver

	mu        sync.Mutex
	listeners []ProgressListener
}

// NewCoordinator builds a coordinator. drv may be nil for batches whose
// interactions all carry preset replies.
func NewCoordinator(cfg Config, judgeList []judges.Judge, drv driver.Driver) *Coordinator {
	return &Coordinator{cfg: cfg.withDefaults(), judges: judgeList, driver: drv}
}

// AddListener registers a progress listener. Safe to call before Run only.
func (c *Coordinator) AddListener(l ProgressListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *Coordinator) notify(ev ProgressEvent) {
	c.mu.Lock()
	listeners := make([]ProgressListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}

// Run executes the whole batch and returns the result document. The only
// fatal errors are an invalid batch definition or having no judges; scenario
// level configuration problems are recorded on the affected scenario and the
// rest of the batch still runs. Cancellation stops scheduling new work and
// returns the results gathered so far along with ctx.Err().
func (c *Coordinator) Run(ctx context.Context, batch *models.TestBatch) (*models.BatchResult, error) {
	if batch == nil {
		return nil, fmt.Errorf("nil test batch")
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	if len(c.judges) == 0 {
		return nil, fmt.Errorf("no judges configured")
	}

	start := time.Now()
	scenarios := batch.Normalized()

	c.notify(ProgressEvent{Kind: EventBatchStart, BatchID: batch.ID})
	slog.Info("starting batch evaluation",
		"batch", batch.ID,
		"scenarios", len(scenarios),
		"attempts", c.cfg.Attempts,
		"judges", len(c.judges))

	results := make([]models.ScenarioResult, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.ScenarioWorkers)
	for i, scenario := range scenarios {
		g.Go(func() error {
			c.notify(ProgressEvent{
				Kind:         EventScenarioStart,
				BatchID:      batch.ID,
				ScenarioID:   scenario.ID,
				ScenarioName: scenario.Name,
			})

			runner := NewAttemptRunner(c.judges, c.driver, driver.Options{
				ModelID:      c.cfg.ModelID,
				CarryContext: c.cfg.CarryContext,
			}, c.cfg.JudgeWorkers)
			orch := NewScenarioOrchestrator(runner, c.cfg.Attempts, c.notify)

			result, err := orch.Run(gctx, scenario)
			if err != nil {
				slog.Warn("scenario rejected", "scenario", scenario.ID, "error", err)
				result.ConfigError = err.Error()
			}
			results[i] = result

			c.notify(ProgressEvent{
				Kind:         EventScenarioComplete,
				BatchID:      batch.ID,
				ScenarioID:   scenario.ID,
				ScenarioName: scenario.Name,
			})
			return nil
		})
	}
	_ = g.Wait()

	doc := &models.BatchResult{
		Metadata: models.ScenarioMetadata{
			BatchID:         batch.ID,
			TestName:        c.cfg.TestName,
			Timestamp:       start.UTC(),
			ModelUsed:       c.cfg.ModelID,
			EvaluatorType:   evaluatorType(c.judges),
			DurationSeconds: time.Since(start).Seconds(),
		},
		Scenarios: results,
	}
	for _, sc := range results {
		doc.Metadata.TotalInteractions += sc.InteractionCount
	}
	doc.Metadata.AverageScore = doc.ComputeAverageScore()
	doc.Metadata.SuccessRate = doc.ComputeSuccessRate()

	c.notify(ProgressEvent{Kind: EventBatchComplete, BatchID: batch.ID})
	slog.Info("batch evaluation finished",
		"batch", batch.ID,
		"duration", time.Since(start),
		"success_rate", doc.Metadata.SuccessRate)

	return doc, ctx.Err()
}

func evaluatorType(judgeList []judges.Judge) string {
	names := make([]string, 0, len(judgeList))
	for _, j := range judgeList {
		names = append(names, string(j.Kind()))
	}
	return strings.Join(names, ",")
}
