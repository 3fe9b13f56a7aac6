package judges

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/levelapp/levelgo/internal/models"
)

type genericParams struct {
	APIURL     string `mapstructure:"api_url"`
	ModelID    string `mapstructure:"model_id"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// genericJudge scores samples through a locally hosted model behind a plain
// prompt-in/JSON-out HTTP endpoint. The model is identified with an
// x-model-id header, matching the local inference server contract.
type genericJudge struct {
	name     string
	params   genericParams
	settings settings
	client   *http.Client
}

func newGenericJudge(name string, params genericParams, s settings) (*genericJudge, error) {
	if params.APIURL == "" {
		return nil, errors.New("required parameter 'api_url' is missing")
	}
	if params.TimeoutSec <= 0 {
		params.TimeoutSec = DefaultTimeoutSec
	}
	return &genericJudge{
		name:     name,
		params:   params,
		settings: s,
		client:   &http.Client{Timeout: time.Duration(params.TimeoutSec) * time.Second},
	}, nil
}

func (g *genericJudge) Name() string { return g.name }

func (g *genericJudge) Kind() Kind { return KindGeneric }

// Evaluate implements [Judge].
func (g *genericJudge) Evaluate(ctx context.Context, sample Sample) models.JudgeVerdict {
	if verdict, done := scoreEmptyReply(sample); done {
		return verdict
	}

	prompt := BuildPrompt(sample)

	verdict := evaluateWithRetry(ctx, g.settings, g.name, func(ctx context.Context) (models.JudgeVerdict, error) {
		output, err := g.callModel(ctx, prompt)
		if err != nil {
			return models.JudgeVerdict{}, err
		}

		level, justification, err := ParseVerdict(output)
		if err != nil {
			return models.JudgeVerdict{}, err
		}
		return models.SuccessVerdict(level, justification), nil
	})

	annotateVerdict(&verdict, sample, g.params.ModelID, KindGeneric)
	return verdict
}

func (g *genericJudge) callModel(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.params.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.params.ModelID != "" {
		req.Header.Set("x-model-id", g.params.ModelID)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("judge request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading judge response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("judge request returned status %d", resp.StatusCode)
	}

	return extractModelOutput(raw), nil
}

// extractModelOutput reduces a model server response to the output text.
// Servers answer in a handful of shapes; common wrapper keys are tried in
// order, and anything unrecognized falls back to the raw body.
func extractModelOutput(raw []byte) string {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asObject map[string]any
	if err := json.Unmarshal(raw, &asObject); err == nil {
		for _, key := range []string{"response", "text", "content", "message", "output"} {
			if v, ok := asObject[key].(string); ok && v != "" {
				return v
			}
		}
	}

	return string(raw)
}

// scoreEmptyReply handles the empty-generation edge deterministically: an
// empty reply is scored as a poor match without a backend call, never skipped.
func scoreEmptyReply(sample Sample) (models.JudgeVerdict, bool) {
	if sample.GeneratedText != "" {
		return models.JudgeVerdict{}, false
	}
	return models.SuccessVerdict(models.MatchPoor, "agent produced an empty reply; nothing to compare against the reference"), true
}

// annotateVerdict attaches adapter bookkeeping and the deterministic
// metadata-field comparison to a verdict.
func annotateVerdict(v *models.JudgeVerdict, sample Sample, modelID string, kind Kind) {
	if v.Metadata == nil {
		v.Metadata = make(map[string]any)
	}
	v.Metadata["judge_kind"] = string(kind)
	if modelID != "" {
		v.Metadata["model_used"] = modelID
	}
	if len(sample.ReferenceMetadata) > 0 {
		v.Metadata["metadata_match"] = CompareMetadata(sample.ReferenceMetadata, sample.GeneratedMetadata)
	}
}
