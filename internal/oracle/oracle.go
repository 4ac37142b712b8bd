// Package oracle defines the contract with the external LLM chat service and
// the helpers shared by its providers.
package oracle

import "context"

// Client sends one prompt and returns one response envelope.
type Client interface {
	Complete(ctx context.Context, prompt string) (Envelope, error)
	// Name is the provider name used in logs, e.g. "gemini".
	Name() string
	Model() string
}
