package judges

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/levelapp/levelgo/internal/models"
)

// judgingPrompt is the rubric shared by all LLM-backed judges. The backend is
// instructed to answer with a single fixed-schema JSON object so the reply is
// strictly parseable.
const judgingPrompt = `You are an expert evaluator of conversational AI systems. Your task is to evaluate how well a chatbot's generated reply matches the expected reference reply.

Evaluation Criteria:
- Relevance: how well the reply addresses the same content as the reference
- Helpfulness: whether the reply is useful and informative
- Clarity: whether the reply is clear and easy to understand
- Appropriateness: whether the tone and style fit the conversation
- Accuracy: whether factual claims agree with the reference

Rating Scale:
3 - Excellent: reply is highly relevant, helpful, clear, appropriate, and accurate
2 - Good: reply is mostly relevant and helpful with minor issues
1 - Fair: reply addresses the content but has notable deficiencies
0 - Poor: reply is irrelevant, unhelpful, unclear, or inappropriate

Expected Reply:
"""
%s
"""

Generated Reply:
"""
%s
"""
%sReturn your assessment as a valid JSON object with exactly these keys:
{"match_level": <integer 0-3>, "justification": "<brief explanation of your rating>"}

Output only the JSON object and nothing else.`

// BuildPrompt formats the judging prompt for a sample. When the sample carries
// reference metadata, the prompt asks the judge to weigh the structured fields
// as well.
func BuildPrompt(sample Sample) string {
	metadataSection := ""
	if len(sample.ReferenceMetadata) > 0 {
		ref, _ := json.Marshal(sample.ReferenceMetadata)
		gen, _ := json.Marshal(sample.GeneratedMetadata)
		metadataSection = fmt.Sprintf("\nExpected structured fields:\n%s\n\nExtracted structured fields:\n%s\n\nWeigh agreement of the structured fields into your rating.\n\n", ref, gen)
	}
	return fmt.Sprintf(judgingPrompt, sample.ExpectedText, sample.GeneratedText, metadataSection)
}

// wireVerdict is the schema every backend response must reduce to.
type wireVerdict struct {
	MatchLevel    *int   `json:"match_level"`
	Justification string `json:"justification"`
}

var jsonObjectPattern = regexp.MustCompile(`(?s)(\{.*\})`)

// ParseVerdict extracts a {match_level, justification} object from raw model
// output. Direct JSON parsing is tried first; as a fallback the first
// JSON-looking object embedded in surrounding prose is extracted.
func ParseVerdict(output string) (int, string, error) {
	output = strings.TrimSpace(output)

	var wire wireVerdict
	if err := json.Unmarshal([]byte(output), &wire); err != nil {
		m := jsonObjectPattern.FindStringSubmatch(output)
		if m == nil {
			return 0, "", fmt.Errorf("no JSON object in judge output")
		}
		if err := json.Unmarshal([]byte(m[1]), &wire); err != nil {
			return 0, "", fmt.Errorf("malformed JSON in judge output: %w", err)
		}
	}

	if wire.MatchLevel == nil {
		return 0, "", fmt.Errorf("judge output is missing match_level")
	}
	if *wire.MatchLevel < models.MatchPoor || *wire.MatchLevel > models.MatchExcellent {
		return 0, "", fmt.Errorf("judge output match_level %d is outside the 0-3 scale", *wire.MatchLevel)
	}
	return *wire.MatchLevel, wire.Justification, nil
}

// CompareMetadata deterministically scores field agreement between reference
// and generated metadata: the fraction of reference fields whose normalized
// string value matches. Returns 1.0 when there is nothing to compare.
func CompareMetadata(reference, generated map[string]any) float64 {
	if len(reference) == 0 {
		return 1.0
	}
	matched := 0
	for key, want := range reference {
		got, ok := generated[key]
		if ok && normalizeField(want) == normalizeField(got) {
			matched++
		}
	}
	return float64(matched) / float64(len(reference))
}

func normalizeField(v any) string {
	return strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
}
