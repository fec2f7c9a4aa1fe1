// Package inference holds the clients for the language-model inference
// server. The server owns model state; callers reserve an instance slot
// with a system prompt, run constrained next-token-probability queries
// against it and reset its conversation context between questions.
package inference

import "context"

// Engine is the capability the critic depends on. It is constructed by
// the critic's owner and injected; there is no process-wide instance.
type Engine interface {
	// CreateInstance reserves a slot on the server primed with the given
	// system prompt and returns its id.
	CreateInstance(ctx context.Context, systemPrompt string) (string, error)

	// NextTokenProbabilities submits prompt to the slot with generation
	// restricted to the candidate set by the grammar, and returns the
	// probability mass the model assigns to each candidate.
	NextTokenProbabilities(ctx context.Context, slotID, prompt string, candidates []string, grammar string) (map[string]float64, error)

	// ResetInstance clears the slot's conversation context so the next
	// query is independent of everything asked before.
	ResetInstance(ctx context.Context, slotID string) error

	// Ready reports whether the server is able to serve queries.
	Ready() bool
}
