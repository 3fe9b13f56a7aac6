package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBatchYAML = `
id: my-batch
description: smoke test
scenarios:
  - id: greeting
    name: Greeting flow
    interactions:
      - user_message: "hello"
        reference_reply: "hi"
        interaction_type: opening
`

func TestValidateBatchBytes_Valid(t *testing.T) {
	errs := ValidateBatchBytes([]byte(validBatchYAML))
	assert.Empty(t, errs)
}

func TestValidateBatchBytes_Violations(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantHit string
	}{
		{
			name:    "missing id",
			yaml:    "description: no id\ninteractions:\n  - user_message: hi\n",
			wantHit: "/",
		},
		{
			name:    "neither interactions nor scenarios",
			yaml:    "id: lonely\n",
			wantHit: "/",
		},
		{
			name: "bad interaction type",
			yaml: `
id: bad-type
interactions:
  - user_message: "hello"
    interaction_type: greeting
`,
			wantHit: "interaction_type",
		},
		{
			name: "interaction without message or preset reply",
			yaml: `
id: empty-turn
interactions:
  - reference_reply: "hi"
`,
			wantHit: "/interactions/0",
		},
		{
			name:    "not yaml at all",
			yaml:    "{{{{",
			wantHit: "YAML parse error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateBatchBytes([]byte(tt.yaml))
			require.NotEmpty(t, errs)
			found := false
			for _, e := range errs {
				if strings.Contains(e, tt.wantHit) {
					found = true
					break
				}
			}
			assert.True(t, found, "expected a violation mentioning %q, got %v", tt.wantHit, errs)
		})
	}
}

func TestValidateBatchJSON(t *testing.T) {
	valid := `{"id": "json-batch", "interactions": [{"user_message": "hi", "reference_reply": "hello"}]}`
	assert.Empty(t, ValidateBatchJSON([]byte(valid)))

	invalid := `{"interactions": []}`
	assert.NotEmpty(t, ValidateBatchJSON([]byte(invalid)))

	garbage := `not json`
	errs := ValidateBatchJSON([]byte(garbage))
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "JSON parse error")
}

func TestValidateBatchFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(validBatchYAML), 0o644))
	errs, err := ValidateBatchFile(yamlPath)
	require.NoError(t, err)
	assert.Empty(t, errs)

	_, err = ValidateBatchFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
