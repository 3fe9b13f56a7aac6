package orchestration

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelapp/levelgo/internal/driver"
	"github.com/levelapp/levelgo/internal/judges"
	"github.com/levelapp/levelgo/internal/models"
)

func presetBatch() *models.TestBatch {
	return &models.TestBatch{
		ID: "batch-1",
		Scenarios: []models.Scenario{
			{
				ID: "sc-a",
				Interactions: []models.Interaction{
					{ID: "t1", UserMessage: "q1", AgentReply: "good answer", ReferenceReply: "good answer"},
				},
			},
			{
				ID: "sc-b",
				Interactions: []models.Interaction{
					{ID: "t1", UserMessage: "q1", AgentReply: "another answer", ReferenceReply: "another answer"},
				},
			},
		},
	}
}

func TestCoordinator_HappyPathAggregates(t *testing.T) {
	judge := judges.NewStubJudge("stub", models.MatchExcellent, "")
	c := NewCoordinator(Config{TestName: "smoke", ModelID: "agent-1", Attempts: 2}, []judges.Judge{judge}, nil)

	result, err := c.Run(context.Background(), presetBatch())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "batch-1", result.Metadata.BatchID)
	assert.Equal(t, "smoke", result.Metadata.TestName)
	assert.Equal(t, "agent-1", result.Metadata.ModelUsed)
	assert.Equal(t, "stub", result.Metadata.EvaluatorType)
	assert.Equal(t, 2, result.Metadata.TotalInteractions)
	assert.False(t, result.Metadata.Timestamp.IsZero())

	require.Len(t, result.Scenarios, 2)
	for _, sc := range result.Scenarios {
		require.Len(t, sc.Attempts, 2)
		assert.Empty(t, sc.ConfigError)
	}

	require.NotNil(t, result.Metadata.AverageScore)
	assert.InDelta(t, float64(models.MatchExcellent), *result.Metadata.AverageScore, 1e-9)
	assert.Equal(t, 100.0, result.Metadata.SuccessRate)
}

func TestCoordinator_AgentUnreachable(t *testing.T) {
	batch := &models.TestBatch{
		ID: "down-batch",
		Interactions: []models.Interaction{
			{ID: "t1", UserMessage: "hello", ReferenceReply: "hi"},
			{ID: "t2", UserMessage: "bye", ReferenceReply: "goodbye"},
		},
	}

	drv := driver.NewMockDriver()
	drv.FailAll = true
	judge := judges.NewStubJudge("stub", models.MatchExcellent, "")

	c := NewCoordinator(Config{ModelID: "agent-1"}, []judges.Judge{judge}, drv)
	result, err := c.Run(context.Background(), batch)
	require.NoError(t, err)

	require.Len(t, result.Scenarios, 1)
	require.Len(t, result.Scenarios[0].Attempts, 1)
	assert.Equal(t, models.AttemptFailed, result.Scenarios[0].Attempts[0].Status)

	// every verdict errored: rate is zero and there is no average to report
	assert.Nil(t, result.Metadata.AverageScore)
	assert.Equal(t, 0.0, result.Metadata.SuccessRate)
	assert.Equal(t, 0, judge.Calls())
}

func TestCoordinator_InvalidScenarioDoesNotSinkTheBatch(t *testing.T) {
	batch := &models.TestBatch{
		ID: "mixed-batch",
		Scenarios: []models.Scenario{
			{ID: "broken"}, // no interactions
			{
				ID: "healthy",
				Interactions: []models.Interaction{
					{ID: "t1", AgentReply: "canned", ReferenceReply: "canned"},
				},
			},
		},
	}

	judge := judges.NewStubJudge("stub", models.MatchGood, "")
	c := NewCoordinator(Config{}, []judges.Judge{judge}, nil)

	result, err := c.Run(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, result.Scenarios, 2)

	broken := result.Scenarios[0]
	assert.NotEmpty(t, broken.ConfigError)
	assert.Empty(t, broken.Attempts)

	healthy := result.Scenarios[1]
	assert.Empty(t, healthy.ConfigError)
	require.Len(t, healthy.Attempts, 1)
	assert.Equal(t, models.AttemptSuccess, healthy.Attempts[0].Status)
}

func TestCoordinator_InvalidBatchIsFatal(t *testing.T) {
	judge := judges.NewStubJudge("stub", models.MatchGood, "")
	c := NewCoordinator(Config{}, []judges.Judge{judge}, nil)

	_, err := c.Run(context.Background(), &models.TestBatch{Description: "no id"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrScenarioConfig)
}

func TestCoordinator_RequiresJudges(t *testing.T) {
	c := NewCoordinator(Config{}, nil, nil)
	_, err := c.Run(context.Background(), presetBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no judges")
}

func TestCoordinator_EmitsProgressEvents(t *testing.T) {
	judge := judges.NewStubJudge("stub", models.MatchGood, "")
	c := NewCoordinator(Config{Attempts: 1}, []judges.Judge{judge}, nil)

	var mu sync.Mutex
	counts := map[ProgressEventKind]int{}
	c.AddListener(func(ev ProgressEvent) {
		mu.Lock()
		counts[ev.Kind]++
		mu.Unlock()
	})

	_, err := c.Run(context.Background(), presetBatch())
	require.NoError(t, err)

	assert.Equal(t, 1, counts[EventBatchStart])
	assert.Equal(t, 1, counts[EventBatchComplete])
	assert.Equal(t, 2, counts[EventScenarioStart])
	assert.Equal(t, 2, counts[EventScenarioComplete])
	assert.Equal(t, 2, counts[EventAttemptStart])
	assert.Equal(t, 2, counts[EventAttemptComplete])
}

func TestCoordinator_MultipleJudgesPerInteraction(t *testing.T) {
	strict := judges.NewStubJudge("strict", models.MatchFair, "")
	lenient := judges.NewStubJudge("lenient", models.MatchExcellent, "")

	c := NewCoordinator(Config{}, []judges.Judge{strict, lenient}, nil)
	result, err := c.Run(context.Background(), presetBatch())
	require.NoError(t, err)

	// one verdict per (interaction, judge) pair
	verdicts := result.AllVerdicts()
	assert.Len(t, verdicts, 4)
	assert.Equal(t, "stub,stub", result.Metadata.EvaluatorType)

	require.NotNil(t, result.Metadata.AverageScore)
	assert.InDelta(t, 2.0, *result.Metadata.AverageScore, 1e-9)
}

// echoJudge records the generated text in its justification so tests can
// trace which reply a verdict was produced for.
type echoJudge struct{ name string }

func (e *echoJudge) Name() string { return e.name }

func (e *echoJudge) Kind() judges.Kind { return judges.KindStub }

func (e *echoJudge) Evaluate(_ context.Context, sample judges.Sample) models.JudgeVerdict {
	return models.SuccessVerdict(models.MatchExcellent, "scored: "+sample.GeneratedText)
}

func TestCoordinator_ConcurrentScenariosDoNotCrossContaminate(t *testing.T) {
	batch := &models.TestBatch{ID: "fanout"}
	for _, id := range []string{"sc-a", "sc-b", "sc-c", "sc-d", "sc-e", "sc-f"} {
		batch.Scenarios = append(batch.Scenarios, models.Scenario{
			ID: id,
			Interactions: []models.Interaction{
				{ID: "t1", UserMessage: "q", AgentReply: "reply for " + id, ReferenceReply: "ref"},
				{ID: "t2", UserMessage: "q", AgentReply: "second reply for " + id, ReferenceReply: "ref"},
			},
		})
	}

	c := NewCoordinator(Config{ScenarioWorkers: 4, Attempts: 2}, []judges.Judge{&echoJudge{name: "echo"}}, nil)
	result, err := c.Run(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, result.Scenarios, 6)

	for _, sc := range result.Scenarios {
		require.Len(t, sc.Attempts, 2)
		for _, attempt := range sc.Attempts {
			for _, in := range attempt.Interactions {
				v := in.EvaluationResults["echo"]
				assert.Equal(t, "scored: "+in.AgentReply, v.Justification)
				assert.Contains(t, v.Justification, sc.ScenarioID)
			}
		}
	}

	// reported aggregates must be reproducible from the raw scenario data
	assert.Equal(t, result.ComputeSuccessRate(), result.Metadata.SuccessRate)
	require.NotNil(t, result.Metadata.AverageScore)
	assert.InDelta(t, *result.ComputeAverageScore(), *result.Metadata.AverageScore, 1e-9)

	// a second run over the same batch yields identical aggregates
	again, err := c.Run(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, result.Metadata.SuccessRate, again.Metadata.SuccessRate)
	assert.InDelta(t, *result.Metadata.AverageScore, *again.Metadata.AverageScore, 1e-9)
}
