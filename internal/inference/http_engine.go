package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HTTPEngine talks to the inference server over its native REST API. The
// server exposes grammar-constrained probability queries that the generic
// chat-completion SDKs cannot express, so this client speaks the protocol
// directly.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
	ready   atomic.Bool
}

type HTTPEngineConfig struct {
	BaseURL string
	Timeout time.Duration
}

func NewHTTPEngine(cfg HTTPEngineConfig, log zerolog.Logger) (*HTTPEngine, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("engine base URL is empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid engine base URL %q: %w", cfg.BaseURL, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	e := &HTTPEngine{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "inference_http").Logger(),
	}
	return e, nil
}

type createInstanceRequest struct {
	SystemPrompt string `json:"system_prompt"`
}

type createInstanceResponse struct {
	SlotID string `json:"slot_id"`
}

type probabilitiesRequest struct {
	Prompt     string   `json:"prompt"`
	Candidates []string `json:"candidates"`
	Grammar    string   `json:"grammar"`
}

type probabilitiesResponse struct {
	Probabilities map[string]float64 `json:"probabilities"`
}

func (e *HTTPEngine) CreateInstance(ctx context.Context, systemPrompt string) (string, error) {
	var resp createInstanceResponse
	err := e.post(ctx, "/v1/instances", createInstanceRequest{SystemPrompt: systemPrompt}, &resp)
	if err != nil {
		return "", fmt.Errorf("create instance: %w", err)
	}
	if resp.SlotID == "" {
		return "", fmt.Errorf("create instance: server returned empty slot id")
	}
	e.ready.Store(true)
	e.log.Info().Str("slot_id", resp.SlotID).Msg("inference instance created")
	return resp.SlotID, nil
}

func (e *HTTPEngine) NextTokenProbabilities(ctx context.Context, slotID, prompt string, candidates []string, grammar string) (map[string]float64, error) {
	req := probabilitiesRequest{Prompt: prompt, Candidates: candidates, Grammar: grammar}
	var resp probabilitiesResponse
	path := fmt.Sprintf("/v1/instances/%s/probabilities", url.PathEscape(slotID))
	if err := e.post(ctx, path, req, &resp); err != nil {
		return nil, fmt.Errorf("probability query: %w", err)
	}
	return resp.Probabilities, nil
}

func (e *HTTPEngine) ResetInstance(ctx context.Context, slotID string) error {
	path := fmt.Sprintf("/v1/instances/%s/reset", url.PathEscape(slotID))
	if err := e.post(ctx, path, struct{}{}, nil); err != nil {
		return fmt.Errorf("reset instance: %w", err)
	}
	return nil
}

// Ready reports whether the last exchange with the server completed. The
// flag starts false so an engine that never managed to create a slot is
// treated as unusable; any later successful exchange restores it, so a
// transient outage only degrades the evaluations issued while the server
// was actually unreachable.
func (e *HTTPEngine) Ready() bool {
	return e.ready.Load()
}

func (e *HTTPEngine) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		e.ready.Store(false)
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	// The server answered, so it is reachable again even if this flag was
	// cleared by an earlier transport failure.
	e.ready.Store(true)
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
