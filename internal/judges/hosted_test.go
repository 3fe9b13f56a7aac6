package judges

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostedJudge_Evaluate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/llama-3/predictions", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		var req providerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Properties.Input, "the reply under test")
		assert.Equal(t, float64(150), req.Options["max_tokens"])

		var resp providerResponse
		resp.Properties.Output = `{"match_level": 2, "justification": "solid"}`
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer srv.Close()

	j, err := Create(KindHosted, "hosted-test", map[string]any{
		"api_url":  srv.URL,
		"api_key":  "secret-token",
		"model_id": "llama-3",
	})
	require.NoError(t, err)

	verdict := j.Evaluate(context.Background(), Sample{
		GeneratedText: "the reply under test",
		ExpectedText:  "the reference",
	})

	require.True(t, verdict.Succeeded())
	assert.Equal(t, 2, *verdict.MatchLevel)
	assert.Equal(t, "hosted", verdict.Metadata["judge_kind"])
	assert.Equal(t, "llama-3", verdict.Metadata["model_used"])
}

func TestHostedJudge_RequiredParameters(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		wantErr string
	}{
		{
			name:    "missing api_url",
			params:  map[string]any{"api_key": "k", "model_id": "m"},
			wantErr: "api_url",
		},
		{
			name:    "missing api_key",
			params:  map[string]any{"api_url": "http://x", "model_id": "m"},
			wantErr: "api_key",
		},
		{
			name:    "missing model_id",
			params:  map[string]any{"api_url": "http://x", "api_key": "k"},
			wantErr: "model_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Create(KindHosted, "", tt.params)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
