package domain

import "context"

// ChatRequest represents one model invocation request.
type ChatRequest struct {
	Messages []ProviderMessage
	// Optional generation settings.
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	Tools       []ToolDefinition
}

// ChatResponse is the complete response of a non-streaming model invocation.
// ToolCalls is empty when the model produced a final textual answer.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// Usage contains token usage for one model invocation.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add accumulates usage from another invocation.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// TextDeltaCallback receives incremental text fragments from a streaming
// model invocation.
type TextDeltaCallback func(delta string) error

// ModelProvider abstracts the LLM backend behind the two calls the
// orchestration needs, so the loop stays provider-agnostic and can be tested
// with a scripted stub.
type ModelProvider interface {
	// Invoke sends the full message list and suspends until the model returns
	// a complete response, which may request tool calls.
	Invoke(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// Stream sends the full message list and forwards text fragments to
	// onDelta as they arrive. Used only as the fallback generation path.
	Stream(ctx context.Context, req ChatRequest, onDelta TextDeltaCallback) error
}

// EmbeddingVector is the result of vectorizing a text.
type EmbeddingVector struct {
	Vector      []float64
	TotalTokens int
}

// SemanticEncoder turns texts and products into embedding vectors for the
// similarity index.
type SemanticEncoder interface {
	// VectorizeQuery embeds a free-text similarity query.
	VectorizeQuery(ctx context.Context, query string) (EmbeddingVector, error)

	// VectorizeProduct embeds a product document for indexing.
	VectorizeProduct(ctx context.Context, product Product) (EmbeddingVector, error)
}
