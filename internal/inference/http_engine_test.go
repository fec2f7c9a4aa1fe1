package inference_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"action-critic/internal/inference"
)

func newTestEngine(t *testing.T, handler http.Handler) *inference.HTTPEngine {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	engine, err := inference.NewHTTPEngine(inference.HTTPEngineConfig{BaseURL: server.URL}, zerolog.Nop())
	require.NoError(t, err)
	return engine
}

func TestNewHTTPEngine_EmptyBaseURL(t *testing.T) {
	_, err := inference.NewHTTPEngine(inference.HTTPEngineConfig{}, zerolog.Nop())
	assert.EqualError(t, err, "engine base URL is empty")
}

func TestHTTPEngine_CreateInstance(t *testing.T) {
	var gotPrompt string
	engine := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/instances", r.URL.Path)
		var req struct {
			SystemPrompt string `json:"system_prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req.SystemPrompt
		_ = json.NewEncoder(w).Encode(map[string]string{"slot_id": "slot-9"})
	}))

	assert.False(t, engine.Ready(), "engine must start not ready")

	slotID, err := engine.CreateInstance(context.Background(), "answer yes or no")
	require.NoError(t, err)
	assert.Equal(t, "slot-9", slotID)
	assert.Equal(t, "answer yes or no", gotPrompt)
	assert.True(t, engine.Ready())
}

func TestHTTPEngine_CreateInstance_EmptySlotID(t *testing.T) {
	engine := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"slot_id": ""})
	}))

	_, err := engine.CreateInstance(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestHTTPEngine_NextTokenProbabilities(t *testing.T) {
	engine := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/instances":
			_ = json.NewEncoder(w).Encode(map[string]string{"slot_id": "slot-1"})
		case "/v1/instances/slot-1/probabilities":
			var req struct {
				Prompt     string   `json:"prompt"`
				Candidates []string `json:"candidates"`
				Grammar    string   `json:"grammar"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Is it raining?", req.Prompt)
			assert.Equal(t, []string{"yes", "no"}, req.Candidates)
			assert.NotEmpty(t, req.Grammar)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"probabilities": map[string]float64{"yes": 0.25, "no": 0.75},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	slotID, err := engine.CreateInstance(ctx, "prompt")
	require.NoError(t, err)

	probs, err := engine.NextTokenProbabilities(ctx, slotID, "Is it raining?", []string{"yes", "no"}, `root ::= "yes" | "no"`)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, probs["yes"], 1e-9)
	assert.InDelta(t, 0.75, probs["no"], 1e-9)
}

func TestHTTPEngine_ReadyRecoversAfterTransientFailure(t *testing.T) {
	var dropNext atomic.Bool
	engine := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if dropNext.CompareAndSwap(true, false) {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok, "test server must support hijacking")
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		switch r.URL.Path {
		case "/v1/instances":
			_ = json.NewEncoder(w).Encode(map[string]string{"slot_id": "slot-1"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"probabilities": map[string]float64{"yes": 1.0, "no": 0.0},
			})
		}
	}))

	ctx := context.Background()
	slotID, err := engine.CreateInstance(ctx, "prompt")
	require.NoError(t, err)
	require.True(t, engine.Ready())

	// One dropped connection marks the engine unusable.
	dropNext.Store(true)
	_, err = engine.NextTokenProbabilities(ctx, slotID, "q", []string{"yes", "no"}, `root ::= "yes" | "no"`)
	require.Error(t, err)
	assert.False(t, engine.Ready(), "transport failure must clear readiness")

	// The server is back; a successful exchange must restore readiness
	// rather than leaving the engine degraded forever.
	probs, err := engine.NextTokenProbabilities(ctx, slotID, "q", []string{"yes", "no"}, `root ::= "yes" | "no"`)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, probs["yes"], 1e-9)
	assert.True(t, engine.Ready(), "successful exchange must restore readiness")
}

func TestHTTPEngine_ServerErrorSurfaces(t *testing.T) {
	engine := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))

	err := engine.ResetInstance(context.Background(), "slot-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
