package driver

import (
	"context"
	"errors"
	"sync"
)

// MockDriver is a scripted in-memory driver for tests. Replies are returned
// in order; a nil entry simulates a failed agent call.
type MockDriver struct {
	mu      sync.Mutex
	replies []mockReply
	next    int

	// FailAll makes every call fail, simulating an unreachable agent.
	FailAll bool

	// Prompts records every prompt the driver saw, in order.
	Prompts []string
}

type mockReply struct {
	text string
	err  error
}

// NewMockDriver creates an empty mock driver.
func NewMockDriver() *MockDriver {
	return &MockDriver{}
}

// Reply scripts a successful reply for the next call.
func (m *MockDriver) Reply(text string) *MockDriver {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, mockReply{text: text})
	return m
}

// Fail scripts a failed call.
func (m *MockDriver) Fail(msg string) *MockDriver {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, mockReply{err: errors.New(msg)})
	return m
}

// SimulateSingle implements [Driver].
func (m *MockDriver) SimulateSingle(_ context.Context, prompt string, _ Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)

	if m.FailAll {
		return "", errors.New("agent unreachable")
	}
	if m.next >= len(m.replies) {
		return "mock reply for: " + prompt, nil
	}
	r := m.replies[m.next]
	m.next++
	if r.err != nil {
		return "", r.err
	}
	return r.text, nil
}

// Simulate implements [Driver].
func (m *MockDriver) Simulate(ctx context.Context, prompts []string, opts Options) []Turn {
	turns := make([]Turn, 0, len(prompts))
	for _, p := range prompts {
		reply, err := m.SimulateSingle(ctx, p, opts)
		turns = append(turns, Turn{Reply: reply, Err: err})
	}
	return turns
}
