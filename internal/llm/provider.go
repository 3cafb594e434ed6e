// Package llm defines the opaque LLM capability the Agent Engine, Planner,
// and Replanner consume: a Complete call returning content plus token usage,
// and a streaming variant yielding chunks with a terminal usage record. Any
// concrete wire protocol (OpenAI-compatible, Anthropic, a local model
// server) lives behind this interface in a sibling package.
package llm

import "context"

// Role constants for Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a chat-style exchange.
type Message struct {
	Role    string
	Content string
}

// Usage reports the token accounting for one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Request is the input to a single completion call.
type Request struct {
	Messages       []Message
	Temperature    float32
	MaxTokens      int
	ResponseFormat string // "", "json" — hint for providers that support constrained output
}

// Response is the output of a single completion call.
type Response struct {
	Content string
	Usage   Usage
}

// StreamChunk is one piece of a streamed completion. The terminal chunk (the
// one after which no more chunks follow) carries Usage; intermediate chunks
// leave it zero.
type StreamChunk struct {
	Content string
	Done    bool
	Usage   Usage
}

// Provider is the opaque LLM capability consumed by the rest of the
// runtime. Implementations decide retries, timeouts, and wire protocol.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)

	// CompleteStream streams text chunks to onChunk as they arrive, then
	// returns the fully assembled Response. A provider that cannot stream
	// natively may fall back to Complete and deliver it as a single chunk.
	CompleteStream(ctx context.Context, req Request, onChunk func(StreamChunk)) (Response, error)

	Name() string
}

// PriceTable holds the per-token price for one model, in the caller's
// chosen currency unit (e.g. USD).
type PriceTable struct {
	InputPricePerToken  float64
	OutputPricePerToken float64
}

// Cost computes prompt_tokens*input_price + completion_tokens*output_price,
// the cost formula the Budget Enforcer accumulates against MaxCost.
func (p PriceTable) Cost(u Usage) float64 {
	return float64(u.PromptTokens)*p.InputPricePerToken + float64(u.CompletionTokens)*p.OutputPricePerToken
}
