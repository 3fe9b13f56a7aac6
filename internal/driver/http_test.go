package driver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDriver_SimulateSingle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "agent-model", r.Header.Get("x-model-id"))

		var req agentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello agent", req.Prompt)

		w.Write([]byte(`{"response": "hello user"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	d, err := NewHTTPDriver(HTTPConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	reply, err := d.SimulateSingle(context.Background(), "hello agent", Options{ModelID: "agent-model"})
	require.NoError(t, err)
	assert.Equal(t, "hello user", reply)
}

func TestHTTPDriver_ReplySniffing(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "json string", body: `"plain reply"`, want: "plain reply"},
		{name: "response key", body: `{"response": "from response"}`, want: "from response"},
		{name: "text key", body: `{"text": "from text"}`, want: "from text"},
		{name: "message key", body: `{"message": "from message"}`, want: "from message"},
		{name: "raw body fallback", body: `just words`, want: "just words"},
		// an agent that answers with nothing still answered; only
		// unreducible shapes fail the turn
		{name: "empty json string", body: `""`, want: ""},
		{name: "empty response key", body: `{"response": ""}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer srv.Close()

			d, err := NewHTTPDriver(HTTPConfig{Endpoint: srv.URL})
			require.NoError(t, err)

			reply, err := d.SimulateSingle(context.Background(), "x", Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply)
		})
	}
}

func TestHTTPDriver_ErrorStatusFailsTheTurn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d, err := NewHTTPDriver(HTTPConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = d.SimulateSingle(context.Background(), "x", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestHTTPDriver_UnusableReplyFailsTheTurn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unknown_key": "value"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	d, err := NewHTTPDriver(HTTPConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = d.SimulateSingle(context.Background(), "x", Options{})
	require.Error(t, err)
}

func TestHTTPDriver_SimulateCarriesContext(t *testing.T) {
	var requests []agentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req agentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)
		w.Write([]byte(`{"response": "reply to ` + req.Prompt + `"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	d, err := NewHTTPDriver(HTTPConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	turns := d.Simulate(context.Background(), []string{"first", "second"}, Options{
		CarryContext:   true,
		ConversationID: "conv-1",
	})

	require.Len(t, turns, 2)
	require.NoError(t, turns[0].Err)
	require.NoError(t, turns[1].Err)

	require.Len(t, requests, 2)
	assert.Empty(t, requests[0].History)
	assert.Equal(t, "conv-1", requests[0].ConversationID)
	require.Len(t, requests[1].History, 1)
	assert.Equal(t, "first", requests[1].History[0].UserMessage)
	assert.Equal(t, "reply to first", requests[1].History[0].AgentReply)
}

func TestHTTPDriver_SimulateContinuesPastFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"response": "ok"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	d, err := NewHTTPDriver(HTTPConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	turns := d.Simulate(context.Background(), []string{"a", "b"}, Options{})
	require.Len(t, turns, 2)
	assert.Error(t, turns[0].Err)
	assert.NoError(t, turns[1].Err)
	assert.Equal(t, "ok", turns[1].Reply)
}

func TestNewHTTPDriver_RequiresEndpoint(t *testing.T) {
	_, err := NewHTTPDriver(HTTPConfig{})
	require.Error(t, err)
}

func TestErrorMarker(t *testing.T) {
	marker := ErrorMarker(assert.AnError)
	assert.True(t, IsErrorMarker(marker))
	assert.False(t, IsErrorMarker("a normal reply"))
	assert.False(t, IsErrorMarker(""))
}
