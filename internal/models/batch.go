package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrScenarioConfig marks a malformed scenario definition. A scenario failing
// validation is skipped without running attempts; other scenarios in the same
// batch are unaffected.
var ErrScenarioConfig = errors.New("invalid scenario configuration")

// Scenario is a named multi-turn test case: an ordered template of
// interaction definitions. Execution never mutates the template.
type Scenario struct {
	ID           string        `json:"id" yaml:"id"`
	Name         string        `json:"name,omitempty" yaml:"name,omitempty"`
	Description  string        `json:"description,omitempty" yaml:"description,omitempty"`
	Interactions []Interaction `json:"interactions" yaml:"interactions"`
}

// Validate checks that the scenario can be executed.
func (s *Scenario) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: scenario is missing an id", ErrScenarioConfig)
	}
	if len(s.Interactions) == 0 {
		return fmt.Errorf("%w: scenario %q has no interactions", ErrScenarioConfig, s.ID)
	}
	for i, in := range s.Interactions {
		if in.UserMessage == "" && !in.HasPresetReply() {
			return fmt.Errorf("%w: scenario %q interaction %d has neither a user_message nor a preset agent_reply", ErrScenarioConfig, s.ID, i)
		}
	}
	return nil
}

// TestBatch is the input unit for an evaluation run. Simple batches carry a
// flat Interactions list; multi-scenario batches nest Scenarios. Exactly one
// of the two forms is expected.
type TestBatch struct {
	ID           string            `json:"id" yaml:"id"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	Details      map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
	Interactions []Interaction     `json:"interactions,omitempty" yaml:"interactions,omitempty"`
	Scenarios    []Scenario        `json:"scenarios,omitempty" yaml:"scenarios,omitempty"`
}

// Validate checks batch-level structure. Per-scenario problems are not
// reported here; they surface per scenario during normalization so one bad
// scenario does not sink the batch.
func (b *TestBatch) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("%w: batch is missing an id", ErrScenarioConfig)
	}
	if len(b.Interactions) == 0 && len(b.Scenarios) == 0 {
		return fmt.Errorf("%w: batch %q has no interactions and no scenarios", ErrScenarioConfig, b.ID)
	}
	return nil
}

// Normalized returns the batch's scenarios. A flat interactions list becomes
// a single implicit scenario named after the batch.
func (b *TestBatch) Normalized() []Scenario {
	if len(b.Scenarios) > 0 {
		return b.Scenarios
	}
	return []Scenario{{
		ID:           b.ID,
		Name:         b.Details["name"],
		Description:  b.Description,
		Interactions: b.Interactions,
	}}
}

// LoadTestBatch reads a batch definition from a YAML or JSON file and
// validates its top-level structure.
func LoadTestBatch(path string) (*TestBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var batch TestBatch
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("parsing batch file %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("parsing batch file %s: %w", path, err)
		}
	}

	if err := batch.Validate(); err != nil {
		return nil, err
	}
	return &batch, nil
}
