package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/levelapp/levelgo/internal/driver"
	"github.com/levelapp/levelgo/internal/judges"
	"github.com/levelapp/levelgo/internal/models"
)

// AttemptRunner executes one full pass over a scenario's interactions:
// collect each agent reply, then score every interaction with every
// configured judge.
type AttemptRunner struct {
	judges []judges.Judge
	driver driver.Driver // nil when every interaction carries a preset reply

	// base driving options; per-attempt conversation state is layered on top
	opts driver.Options

	// judgeWorkers bounds concurrent interaction scoring. Scoring never
	// depends on conversation order, so it can fan out freely.
	judgeWorkers int
}

// NewAttemptRunner builds a runner. A nil drv restricts the runner to
// batches whose interactions carry their own replies.
func NewAttemptRunner(judgeList []judges.Judge, drv driver.Driver, opts driver.Options, judgeWorkers int) *AttemptRunner {
	if judgeWorkers <= 0 {
		judgeWorkers = 4
	}
	return &AttemptRunner{
		judges:       judgeList,
		driver:       drv,
		opts:         opts,
		judgeWorkers: judgeWorkers,
	}
}

// Run executes attempt attemptNumber for the scenario. The scenario template
// is never mutated; the attempt works on cloned interactions.
//
// Reply collection walks interactions strictly in scenario order, since later
// turns may depend on conversation context from earlier ones. Scoring runs
// afterwards and is parallelized across interactions.
func (r *AttemptRunner) Run(ctx context.Context, scenario models.Scenario, attemptNumber int) models.Attempt {
	start := time.Now()

	interactions := make([]models.Interaction, len(scenario.Interactions))
	for i, in := range scenario.Interactions {
		interactions[i] = in.Clone()
	}

	r.collectReplies(ctx, scenario, interactions, attemptNumber)
	r.scoreInteractions(ctx, interactions)

	return models.Attempt{
		AttemptNumber: attemptNumber,
		Interactions:  interactions,
		ExecutionTime: time.Since(start).Seconds(),
		Status:        deriveAttemptStatus(interactions),
	}
}

// collectReplies fills AgentReply for every interaction, turn by turn. A
// failed agent call is recorded as an error marker and the conversation
// continues with the remaining turns.
func (r *AttemptRunner) collectReplies(ctx context.Context, scenario models.Scenario, interactions []models.Interaction, attemptNumber int) {
	opts := r.opts
	if opts.CarryContext && opts.ConversationID == "" {
		opts.ConversationID = fmt.Sprintf("%s-%d-%s", scenario.ID, attemptNumber, uuid.NewString())
	}

	for i := range interactions {
		in := &interactions[i]

		if in.HasPresetReply() {
			continue
		}

		if r.driver == nil {
			in.AgentReply = driver.ErrorMarker(fmt.Errorf("no conversation driver configured for interaction %s", in.ID))
			continue
		}

		reply, err := r.driver.SimulateSingle(ctx, in.UserMessage, opts)
		if err != nil {
			slog.Debug("agent call failed",
				"scenario", scenario.ID, "interaction", in.ID, "error", err)
			in.AgentReply = driver.ErrorMarker(err)
			continue
		}

		in.AgentReply = reply
		if opts.CarryContext {
			opts.History = append(opts.History, driver.Exchange{
				UserMessage: in.UserMessage,
				AgentReply:  reply,
			})
		}
	}
}

// scoreInteractions runs every configured judge for every interaction.
// Judges for one interaction are isolated from each other: a failed verdict
// never blocks or alters another judge's verdict.
func (r *AttemptRunner) scoreInteractions(ctx context.Context, interactions []models.Interaction) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.judgeWorkers)

	for i := range interactions {
		in := &interactions[i]
		g.Go(func() error {
			r.scoreOne(gctx, in)
			return nil
		})
	}

	_ = g.Wait()
}

func (r *AttemptRunner) scoreOne(ctx context.Context, in *models.Interaction) {
	if in.EvaluationResults == nil {
		in.EvaluationResults = make(map[string]models.JudgeVerdict)
	}

	// An error marker is not agent output; there is nothing to score, but
	// every judge still records exactly one verdict for the interaction.
	if driver.IsErrorMarker(in.AgentReply) {
		for _, j := range r.judges {
			in.EvaluationResults[j.Name()] = models.ErrorVerdict("agent call failed, no reply to score: %s", in.AgentReply)
		}
		return
	}

	sample := judges.Sample{
		GeneratedText:     in.AgentReply,
		ExpectedText:      in.ReferenceReply,
		GeneratedMetadata: in.GeneratedMetadata,
		ReferenceMetadata: in.ReferenceMetadata,
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, j := range r.judges {
		wg.Add(1)
		go func(j judges.Judge) {
			defer wg.Done()
			verdict := j.Evaluate(ctx, sample)
			mu.Lock()
			in.EvaluationResults[j.Name()] = verdict
			mu.Unlock()
		}(j)
	}
	wg.Wait()
}

// deriveAttemptStatus computes the attempt status from its interactions:
// failed when agent reply collection failed for every interaction, partial
// when any agent call or judge verdict failed, success otherwise.
func deriveAttemptStatus(interactions []models.Interaction) models.AttemptStatus {
	if len(interactions) == 0 {
		return models.AttemptFailed
	}

	markers := 0
	erroredVerdicts := 0
	for _, in := range interactions {
		if driver.IsErrorMarker(in.AgentReply) {
			markers++
		}
		for _, v := range in.EvaluationResults {
			if v.Status == models.VerdictError {
				erroredVerdicts++
			}
		}
	}

	switch {
	case markers == len(interactions):
		return models.AttemptFailed
	case markers > 0 || erroredVerdicts > 0:
		return models.AttemptPartial
	default:
		return models.AttemptSuccess
	}
}
