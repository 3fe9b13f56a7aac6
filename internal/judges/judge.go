// Package judges contains the LLM-as-judge adapters that score an agent
// reply against a reference reply on the discrete 0-3 match scale.
package judges

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"golang.org/x/time/rate"

	"github.com/levelapp/levelgo/internal/models"
)

// Kind identifies a judge backend variant.
type Kind string

const (
	// KindGeneric talks to a locally hosted model behind a plain
	// prompt-in/JSON-out HTTP endpoint.
	KindGeneric Kind = "generic"
	// KindHosted talks to a hosted inference provider with bearer auth.
	KindHosted Kind = "hosted"
	// KindOpenAI talks to an OpenAI-compatible chat-completions endpoint.
	KindOpenAI Kind = "openai"
	// KindStub returns deterministic verdicts; used for tests and dry runs.
	KindStub Kind = "stub"
)

// Sample is the unit of work handed to a judge: the generated reply, the
// reference it is compared against, and any structured metadata on each side.
type Sample struct {
	GeneratedText     string
	ExpectedText      string
	GeneratedMetadata map[string]any
	ReferenceMetadata map[string]any
}

// Judge scores one sample. Evaluate never fails past its own boundary:
// backend errors, timeouts, and unparseable output become verdicts with
// status=error after bounded retries.
type Judge interface {
	Name() string
	Kind() Kind
	Evaluate(ctx context.Context, sample Sample) models.JudgeVerdict
}

// Defaults for retry behavior. The retry loop is a flat fixed count with a
// small constant delay between tries; there is deliberately no backoff.
const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 250 * time.Millisecond
	DefaultTimeoutSec = 60
)

// Config selects and parameterizes one judge instance.
type Config struct {
	Kind       Kind           `json:"kind" yaml:"kind"`
	Name       string         `json:"name" yaml:"name"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Create builds a judge from the registry of known kinds.
func Create(kind Kind, name string, params map[string]any, opts ...Option) (Judge, error) {
	if name == "" {
		name = string(kind)
	}

	settings := applyOptions(opts)

	switch kind {
	case KindGeneric:
		var p genericParams
		if err := mapstructure.Decode(params, &p); err != nil {
			return nil, err
		}
		return newGenericJudge(name, p, settings)
	case KindHosted:
		var p hostedParams
		if err := mapstructure.Decode(params, &p); err != nil {
			return nil, err
		}
		return newHostedJudge(name, p, settings)
	case KindOpenAI:
		var p openAIParams
		if err := mapstructure.Decode(params, &p); err != nil {
			return nil, err
		}
		return newOpenAIJudge(name, p, settings)
	case KindStub:
		var p stubParams
		if err := mapstructure.Decode(params, &p); err != nil {
			return nil, err
		}
		return NewStubJudge(name, p.MatchLevel, p.Justification), nil
	default:
		return nil, fmt.Errorf("%q is not a valid judge kind", kind)
	}
}

// Option adjusts shared judge behavior (rate gating, retry tuning).
type Option func(*settings)

type settings struct {
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

func applyOptions(opts []Option) settings {
	s := settings{
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// WithRateLimiter shares a limiter across judges to cap outstanding calls
// against backend rate limits. A nil limiter disables gating.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(s *settings) { s.limiter = l }
}

// WithRetries overrides the bounded retry count for transient failures.
func WithRetries(n int, delay time.Duration) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxRetries = n
		}
		if delay > 0 {
			s.retryDelay = delay
		}
	}
}

// evaluateWithRetry runs call up to 1+maxRetries times and converts the final
// failure into an error verdict. Each try gets the same input; a parse failure
// counts the same as a network failure.
func evaluateWithRetry(ctx context.Context, s settings, judgeName string, call func(ctx context.Context) (models.JudgeVerdict, error)) models.JudgeVerdict {
	var lastErr error

	for try := 0; try <= s.maxRetries; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				return models.ErrorVerdict("judge %s: canceled: %v", judgeName, ctx.Err())
			case <-time.After(s.retryDelay):
			}
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return models.ErrorVerdict("judge %s: canceled while rate limited: %v", judgeName, err)
			}
		}

		verdict, err := call(ctx)
		if err == nil {
			return verdict
		}
		lastErr = err

		if errors.Is(err, context.Canceled) {
			break
		}
		slog.Debug("judge call failed, retrying",
			"judge", judgeName, "try", try+1, "max", s.maxRetries+1, "error", err)
	}

	return models.ErrorVerdict("judge %s: %v", judgeName, lastErr)
}
