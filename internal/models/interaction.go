package models

// InteractionType identifies the position of an interaction within a
// conversation. It affects how conversation context is carried forward.
type InteractionType string

const (
	InteractionOpening  InteractionType = "opening"
	InteractionFollowup InteractionType = "followup"
	InteractionClosing  InteractionType = "closing"
)

// Interaction is a single conversational turn under test: the user's message,
// the reply the agent produced, and the reference reply it is judged against.
//
// An interaction inside a scenario template is never mutated by execution;
// each attempt works on its own copy (see Clone).
type Interaction struct {
	ID                string                  `json:"id" yaml:"id"`
	UserMessage       string                  `json:"user_message" yaml:"user_message"`
	AgentReply        string                  `json:"agent_reply,omitempty" yaml:"agent_reply,omitempty"`
	ReferenceReply    string                  `json:"reference_reply" yaml:"reference_reply"`
	Type              InteractionType         `json:"interaction_type" yaml:"interaction_type"`
	ReferenceMetadata map[string]any          `json:"reference_metadata,omitempty" yaml:"reference_metadata,omitempty"`
	GeneratedMetadata map[string]any          `json:"generated_metadata,omitempty" yaml:"generated_metadata,omitempty"`
	EvaluationResults map[string]JudgeVerdict `json:"evaluation_results,omitempty" yaml:"evaluation_results,omitempty"`
}

// Clone returns a deep copy of the interaction suitable for a fresh attempt.
// Reference fields are preserved and EvaluationResults start empty. A
// pre-supplied AgentReply is kept, along with any GeneratedMetadata that came
// with it, so batches carrying their own replies are judged on exactly what
// the author supplied. On live turns GeneratedMetadata starts empty like the
// reply it describes.
func (i Interaction) Clone() Interaction {
	c := i
	c.ReferenceMetadata = copyMap(i.ReferenceMetadata)
	if i.HasPresetReply() {
		c.GeneratedMetadata = copyMap(i.GeneratedMetadata)
	} else {
		c.GeneratedMetadata = nil
	}
	c.EvaluationResults = make(map[string]JudgeVerdict)
	return c
}

// HasPresetReply reports whether the interaction definition carries its own
// agent reply, meaning no live agent call is requested for this turn.
func (i Interaction) HasPresetReply() bool {
	return i.AgentReply != ""
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
