// Package schemas holds the embedded JSON Schemas used to validate batch
// definition files before a run starts.
package schemas

// BatchSchemaJSON validates test batch files (YAML or JSON). A batch carries
// either a flat interactions list or named scenarios, never requiring both.
const BatchSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "Test Batch",
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "details": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "interactions": {
      "type": "array",
      "items": {"$ref": "#/$defs/interaction"}
    },
    "scenarios": {
      "type": "array",
      "items": {"$ref": "#/$defs/scenario"}
    }
  },
  "anyOf": [
    {"required": ["interactions"]},
    {"required": ["scenarios"]}
  ],
  "additionalProperties": false,
  "$defs": {
    "interaction": {
      "type": "object",
      "properties": {
        "id": {"type": "string"},
        "user_message": {"type": "string"},
        "agent_reply": {"type": "string"},
        "reference_reply": {"type": "string"},
        "interaction_type": {
          "type": "string",
          "enum": ["opening", "followup", "closing"]
        },
        "reference_metadata": {"type": "object"},
        "generated_metadata": {"type": "object"}
      },
      "anyOf": [
        {"required": ["user_message"]},
        {"required": ["agent_reply"]}
      ],
      "additionalProperties": false
    },
    "scenario": {
      "type": "object",
      "required": ["id", "interactions"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "name": {"type": "string"},
        "description": {"type": "string"},
        "interactions": {
          "type": "array",
          "minItems": 1,
          "items": {"$ref": "#/$defs/interaction"}
        }
      },
      "additionalProperties": false
    }
  }
}`
