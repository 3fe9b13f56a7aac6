// Package driver drives user prompts through the agent-under-test and
// collects replies turn by turn.
package driver

import (
	"context"
	"fmt"
	"strings"
)

// Exchange is one completed prompt/reply pair, used to carry conversation
// context into later turns.
type Exchange struct {
	UserMessage string `json:"user_message"`
	AgentReply  string `json:"agent_reply"`
}

// Options configures how a simulation talks to the agent endpoint.
type Options struct {
	// ModelID is forwarded to the agent endpoint; informational.
	ModelID string
	// CarryContext folds prior turns into each request and pins a stable
	// conversation id. It is an explicit choice that belongs to the
	// agent-under-test's contract, never inferred from interaction types.
	CarryContext bool
	// ConversationID identifies the session when CarryContext is set.
	ConversationID string
	// History holds the prior exchanges of the conversation so far.
	History []Exchange
}

// Turn records the outcome of driving one prompt.
type Turn struct {
	Reply string
	Err   error
}

// Driver drives prompts through the agent-under-test.
type Driver interface {
	// SimulateSingle drives one prompt and returns the agent's reply.
	// A failed call returns an error; the caller records an error marker.
	SimulateSingle(ctx context.Context, prompt string, opts Options) (string, error)

	// Simulate drives an ordered sequence of prompts, turn by turn,
	// continuing past per-turn failures. The returned slice always has one
	// Turn per prompt.
	Simulate(ctx context.Context, prompts []string, opts Options) []Turn
}

// errorMarkerPrefix distinguishes "the call failed" from "the agent had
// nothing to say" in recorded replies.
const errorMarkerPrefix = "agent-error:"

// ErrorMarker formats a per-turn failure as a reply marker.
func ErrorMarker(err error) string {
	return fmt.Sprintf("%s %v", errorMarkerPrefix, err)
}

// IsErrorMarker reports whether a recorded reply is a failure marker rather
// than actual agent output.
func IsErrorMarker(reply string) bool {
	return strings.HasPrefix(reply, errorMarkerPrefix)
}
