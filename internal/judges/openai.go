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

const (
	defaultOpenAIURL   = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel = "gpt-4o-mini"
)

type openAIParams struct {
	APIURL     string `mapstructure:"api_url"`
	APIKey     string `mapstructure:"api_key"`
	ModelID    string `mapstructure:"model_id"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
	MaxTokens  int    `mapstructure:"max_tokens"`
}

// openAIJudge scores samples through an OpenAI-compatible chat-completions
// endpoint. The judging prompt goes out as a user message under a fixed
// system message, temperature 0 so repeated runs score alike, and the reply
// text in choices[0].message.content is normalized to the same
// {match_level, justification} shape as every other judge.
type openAIJudge struct {
	name     string
	params   openAIParams
	settings settings
	client   *http.Client
}

func newOpenAIJudge(name string, params openAIParams, s settings) (*openAIJudge, error) {
	if params.APIKey == "" {
		return nil, errors.New("required parameter 'api_key' is missing")
	}
	if params.APIURL == "" {
		params.APIURL = defaultOpenAIURL
	}
	if params.ModelID == "" {
		params.ModelID = defaultOpenAIModel
	}
	if params.TimeoutSec <= 0 {
		params.TimeoutSec = DefaultTimeoutSec
	}
	if params.MaxTokens <= 0 {
		params.MaxTokens = 150
	}
	return &openAIJudge{
		name:     name,
		params:   params,
		settings: s,
		client:   &http.Client{Timeout: time.Duration(params.TimeoutSec) * time.Second},
	}, nil
}

func (o *openAIJudge) Name() string { return o.name }

func (o *openAIJudge) Kind() Kind { return KindOpenAI }

// Evaluate implements [Judge].
func (o *openAIJudge) Evaluate(ctx context.Context, sample Sample) models.JudgeVerdict {
	if verdict, done := scoreEmptyReply(sample); done {
		return verdict
	}

	prompt := BuildPrompt(sample)

	verdict := evaluateWithRetry(ctx, o.settings, o.name, func(ctx context.Context) (models.JudgeVerdict, error) {
		output, err := o.callChatCompletions(ctx, prompt)
		if err != nil {
			return models.JudgeVerdict{}, err
		}

		level, justification, err := ParseVerdict(output)
		if err != nil {
			return models.JudgeVerdict{}, err
		}
		return models.SuccessVerdict(level, justification), nil
	})

	annotateVerdict(&verdict, sample, o.params.ModelID, KindOpenAI)
	return verdict
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *openAIJudge) callChatCompletions(ctx context.Context, prompt string) (string, error) {
	payload := chatCompletionRequest{
		Model: o.params.ModelID,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an evaluation assistant."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   o.params.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.params.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.params.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading chat completion response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat completion returned status %d", resp.StatusCode)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("malformed chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", errors.New("chat completion response has no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
