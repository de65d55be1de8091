// Package llm defines the Provider interface for Large Language Model
// backends used by the semantic analysis services.
//
// A provider wraps a remote or local model API (e.g. OpenAI, or anything
// reachable through any-llm) and exposes a uniform request/response interface
// so the semantic services never couple to a specific SDK. The semantic
// services only ever need a single blocking completion per analysis call, so
// the interface is deliberately Complete-only.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Message is one turn of a model conversation.
type Message struct {
	// Role is "system", "user" or "assistant".
	Role string

	// Content is the text of the message.
	Content string
}

// Usage holds token accounting returned by the backend. Counts are in the
// model's native token unit and may differ between providers for the same
// text.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a
// response. At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The last message is typically
	// from the "user" role and drives the response.
	Messages []Message

	// Temperature controls output randomness in [0.0, 2.0]. The semantic
	// services always request 0 for deterministic analysis.
	Temperature float64

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation. Providers without a dedicated system slot prepend it
	// as a "system"-role message.
	SystemPrompt string
}

// CompletionResponse is the model's full reply.
type CompletionResponse struct {
	// Content is the full text of the assistant's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Capabilities describes static metadata about a provider's model. The
// result is assumed constant for the lifetime of the Provider instance.
type Capabilities struct {
	// Model is the backend model identifier.
	Model string

	// ContextWindow is the model's total context size in tokens.
	ContextWindow int

	// MaxOutputTokens is the largest completion the model can produce.
	MaxOutputTokens int
}

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or ctx is cancelled first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities returns static metadata about the underlying model.
	Capabilities() Capabilities
}
