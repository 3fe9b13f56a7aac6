package judges

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/levelapp/levelgo/internal/models"
)

type hostedParams struct {
	APIURL      string  `mapstructure:"api_url"`
	APIKey      string  `mapstructure:"api_key"`
	ModelID     string  `mapstructure:"model_id"`
	TimeoutSec  int     `mapstructure:"timeout_sec"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// hostedJudge scores samples through a hosted inference provider. The
// provider wraps prompts in a properties envelope and authenticates with a
// bearer token; its native response format is normalized to the same
// {match_level, justification} shape as every other judge.
type hostedJudge struct {
	name     string
	params   hostedParams
	settings settings
	client   *http.Client
}

func newHostedJudge(name string, params hostedParams, s settings) (*hostedJudge, error) {
	if params.APIURL == "" {
		return nil, errors.New("required parameter 'api_url' is missing")
	}
	if params.APIKey == "" {
		return nil, errors.New("required parameter 'api_key' is missing")
	}
	if params.ModelID == "" {
		return nil, errors.New("required parameter 'model_id' is missing")
	}
	if params.TimeoutSec <= 0 {
		params.TimeoutSec = DefaultTimeoutSec
	}
	if params.MaxTokens <= 0 {
		params.MaxTokens = 150
	}
	return &hostedJudge{
		name:     name,
		params:   params,
		settings: s,
		client:   &http.Client{Timeout: time.Duration(params.TimeoutSec) * time.Second},
	}, nil
}

func (h *hostedJudge) Name() string { return h.name }

func (h *hostedJudge) Kind() Kind { return KindHosted }

// Evaluate implements [Judge].
func (h *hostedJudge) Evaluate(ctx context.Context, sample Sample) models.JudgeVerdict {
	if verdict, done := scoreEmptyReply(sample); done {
		return verdict
	}

	prompt := BuildPrompt(sample)

	verdict := evaluateWithRetry(ctx, h.settings, h.name, func(ctx context.Context) (models.JudgeVerdict, error) {
		output, err := h.callProvider(ctx, prompt)
		if err != nil {
			return models.JudgeVerdict{}, err
		}

		level, justification, err := ParseVerdict(output)
		if err != nil {
			return models.JudgeVerdict{}, err
		}
		return models.SuccessVerdict(level, justification), nil
	})

	annotateVerdict(&verdict, sample, h.params.ModelID, KindHosted)
	return verdict
}

type providerRequest struct {
	Properties struct {
		Input string `json:"input"`
	} `json:"properties"`
	Options map[string]any `json:"options"`
}

type providerResponse struct {
	Properties struct {
		Output string `json:"output"`
	} `json:"properties"`
}

func (h *hostedJudge) callProvider(ctx context.Context, prompt string) (string, error) {
	var payload providerRequest
	payload.Properties.Input = prompt
	payload.Options = map[string]any{
		"temperature": h.params.Temperature,
		"max_tokens":  h.params.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/predictions", strings.TrimSuffix(h.params.APIURL, "/"), h.params.ModelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+h.params.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading provider response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var parsed providerResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("malformed provider response: %w", err)
	}
	if parsed.Properties.Output == "" {
		return "", errors.New("empty provider response")
	}
	return strings.TrimSpace(parsed.Properties.Output), nil
}
