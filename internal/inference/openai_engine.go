package inference

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEngine adapts an OpenAI-compatible chat endpoint to the Engine
// contract. Those endpoints keep no server-side conversation state, so a
// slot here is a local record of the system prompt; a query sends the
// system prompt plus the question as a fresh one-shot conversation and
// reads the probability mass from the first token's logprobs. The grammar
// is not forwarded (the chat API has no grammar parameter); the candidate
// match on the returned top logprobs plays the same role.
type OpenAIEngine struct {
	client *openai.Client
	model  string
	log    zerolog.Logger

	mu    sync.Mutex
	slots map[string]string // slot id -> system prompt
}

type OpenAIEngineConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewOpenAIEngine(cfg OpenAIEngineConfig, log zerolog.Logger) (*OpenAIEngine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai engine: missing API key")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai engine: missing model name")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		log:    log.With().Str("component", "inference_openai").Logger(),
		slots:  make(map[string]string),
	}, nil
}

func (e *OpenAIEngine) CreateInstance(_ context.Context, systemPrompt string) (string, error) {
	slotID := uuid.NewString()
	e.mu.Lock()
	e.slots[slotID] = systemPrompt
	e.mu.Unlock()
	e.log.Info().Str("slot_id", slotID).Msg("openai slot registered")
	return slotID, nil
}

func (e *OpenAIEngine) NextTokenProbabilities(ctx context.Context, slotID, prompt string, candidates []string, _ string) (map[string]float64, error) {
	e.mu.Lock()
	systemPrompt, ok := e.slots[slotID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("openai engine: unknown slot %q", slotID)
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   1,
		Temperature: 0,
		LogProbs:    true,
		TopLogProbs: 10,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].LogProbs == nil || len(resp.Choices[0].LogProbs.Content) == 0 {
		return nil, fmt.Errorf("chat completion: response carries no logprobs")
	}

	probs := make(map[string]float64, len(candidates))
	for _, candidate := range candidates {
		probs[candidate] = 0
	}
	for _, alt := range resp.Choices[0].LogProbs.Content[0].TopLogProbs {
		token := strings.ToLower(strings.TrimSpace(alt.Token))
		if _, wanted := probs[token]; wanted {
			probs[token] += math.Exp(alt.LogProb)
		}
	}
	return probs, nil
}

// ResetInstance only validates the slot: every query is already a fresh
// one-shot conversation, so there is no server-side context to clear.
func (e *OpenAIEngine) ResetInstance(_ context.Context, slotID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.slots[slotID]; !ok {
		return fmt.Errorf("openai engine: unknown slot %q", slotID)
	}
	return nil
}

func (e *OpenAIEngine) Ready() bool {
	return e.client != nil
}
