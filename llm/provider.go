package llm

import (
	"context"

	"github.com/courtland/gambit/schema"
)

// Request is the normalized provider request the gateway builds. Messages
// and tool descriptors are transport-neutral records; the adapter translates
// them into its SDK's native types.
type Request struct {
	Model               string
	Messages            []map[string]any
	Tools               []map[string]any
	ToolChoice          schema.ToolChoice
	MaxTokens           int
	MaxCompletionTokens int
	Temperature         *float64
	Stream              bool
}

// Completion is one provider response. A nil Completion with a nil error
// means the provider returned no choices.
type Completion struct {
	Content          string
	ToolCalls        []schema.ToolCall
	PromptTokens     int
	CompletionTokens int
}

// Chunk is one increment of a streaming response.
type Chunk struct {
	Delta string
	Err   error
}

// Provider is the consumed chat-completion contract. Adapters translate the
// normalized Request into provider-native calls and surface failures through
// the package error taxonomy.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Completion, error)
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}
