package driver

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

	"golang.org/x/time/rate"
)

// HTTPConfig configures an HTTPDriver.
type HTTPConfig struct {
	// Endpoint is the agent-under-test base URL.
	Endpoint string
	// TimeoutSec bounds each agent call; exceeding it is a per-turn error.
	TimeoutSec int
	// Limiter, when set, gates outgoing calls against agent rate limits.
	Limiter *rate.Limiter
}

// HTTPDriver drives prompts through a generic HTTP agent endpoint. The
// endpoint's exact schema is agent specific; any response that reduces to a
// plain reply string is accepted, and non-success or unparseable responses
// are per-turn errors.
type HTTPDriver struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPDriver creates a driver for the given agent endpoint.
func NewHTTPDriver(cfg HTTPConfig) (*HTTPDriver, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("agent endpoint is required")
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 60
	}
	return &HTTPDriver{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
	}, nil
}

type agentRequest struct {
	Prompt         string     `json:"prompt"`
	ConversationID string     `json:"conversation_id,omitempty"`
	History        []Exchange `json:"history,omitempty"`
}

// SimulateSingle implements [Driver].
func (d *HTTPDriver) SimulateSingle(ctx context.Context, prompt string, opts Options) (string, error) {
	if d.cfg.Limiter != nil {
		if err := d.cfg.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("canceled while rate limited: %w", err)
		}
	}

	payload := agentRequest{Prompt: prompt}
	if opts.CarryContext {
		payload.ConversationID = opts.ConversationID
		payload.History = opts.History
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.ModelID != "" {
		req.Header.Set("x-model-id", opts.ModelID)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading agent response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("agent returned status %d", resp.StatusCode)
	}

	reply, ok := parseReply(raw)
	if !ok {
		return "", errors.New("agent response could not be reduced to a reply")
	}
	return reply, nil
}

// Simulate implements [Driver]. Turns run strictly in order; when
// CarryContext is set, each successful turn's exchange feeds the next one.
func (d *HTTPDriver) Simulate(ctx context.Context, prompts []string, opts Options) []Turn {
	turns := make([]Turn, 0, len(prompts))
	history := append([]Exchange(nil), opts.History...)

	for _, prompt := range prompts {
		turnOpts := opts
		turnOpts.History = history

		reply, err := d.SimulateSingle(ctx, prompt, turnOpts)
		turns = append(turns, Turn{Reply: reply, Err: err})

		if err == nil && opts.CarryContext {
			history = append(history, Exchange{UserMessage: prompt, AgentReply: reply})
		}
	}

	return turns
}

// parseReply reduces an agent response body to a plain reply string. A JSON
// string is used as is; a JSON object is probed for common wrapper keys;
// anything else falls back to the trimmed raw body. The second return
// distinguishes an agent that genuinely replied with nothing (reduced, empty)
// from a response shape that could not be reduced at all: only the latter is
// a call failure, an empty reply flows on to be scored like any other.
func parseReply(raw []byte) (string, bool) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString), true
	}

	var asObject map[string]any
	if err := json.Unmarshal(raw, &asObject); err == nil {
		replyKeys := []string{"response", "text", "content", "message", "output"}
		for _, key := range replyKeys {
			if v, ok := asObject[key].(string); ok && v != "" {
				return strings.TrimSpace(v), true
			}
		}
		// No key carried text, but a present wrapper key with an empty
		// string is still a reply: the agent answered with nothing.
		for _, key := range replyKeys {
			if _, ok := asObject[key].(string); ok {
				return "", true
			}
		}
		return "", false
	}

	return strings.TrimSpace(string(raw)), true
}
