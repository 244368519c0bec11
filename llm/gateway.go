package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/courtland/gambit/schema"
)

// Settings configures one named gateway.
type Settings struct {
	Model          string
	BaseURL        string
	APIKey         string
	APIType        string // "" or "openai" routes to the openai adapter; anything else to gollm
	MaxTokens      int
	MaxInputTokens int // 0 = uncapped
	Temperature    float64
}

// ToolResponse is the structured result of an ask-with-tools call.
type ToolResponse struct {
	Content   string
	ToolCalls []schema.ToolCall
}

// Gateway turns message batches into exactly one model response, enforcing
// the input token budget and normalizing multimodal content. Its running
// token counters are mutex-guarded so a gateway shared between agents stays
// consistent.
type Gateway struct {
	model          string
	maxTokens      int
	temperature    float64
	maxInputTokens int
	provider       Provider
	counter        *TokenCounter
	retry          RetryPolicy
	logger         *zap.Logger
	observer       func(delta string)

	mu                    sync.Mutex
	totalInputTokens      int
	totalCompletionTokens int
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithProvider injects a provider adapter, replacing the one derived from
// the settings' api_type. Tests use this to substitute stubs.
func WithProvider(p Provider) GatewayOption {
	return func(g *Gateway) { g.provider = p }
}

// WithLogger sets the gateway logger.
func WithLogger(logger *zap.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = logger }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) GatewayOption {
	return func(g *Gateway) { g.retry = policy }
}

// WithEncoding overrides the tokenizer encoding used for budget accounting.
func WithEncoding(enc Encoding) GatewayOption {
	return func(g *Gateway) { g.counter = NewTokenCounter(enc) }
}

// WithStreamObserver registers a callback invoked with every streaming text
// delta as it arrives.
func WithStreamObserver(fn func(delta string)) GatewayOption {
	return func(g *Gateway) { g.observer = fn }
}

// NewGateway creates a gateway for the given settings.
func NewGateway(settings Settings, opts ...GatewayOption) (*Gateway, error) {
	g := &Gateway{
		model:          settings.Model,
		maxTokens:      settings.MaxTokens,
		temperature:    settings.Temperature,
		maxInputTokens: settings.MaxInputTokens,
		retry:          DefaultRetryPolicy(),
		logger:         zap.NewNop(),
	}
	if g.maxTokens <= 0 {
		g.maxTokens = 4096
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.counter == nil {
		g.counter = NewTokenCounter(EncodingForModel(settings.Model))
	}
	if g.provider == nil {
		var err error
		g.provider, err = providerForSettings(settings)
		if err != nil {
			return nil, err
		}
	}
	g.retry.OnRetry = func(err error, attempt int) {
		g.logger.Warn("retrying provider call",
			zap.String("model", g.model),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return g, nil
}

func providerForSettings(settings Settings) (Provider, error) {
	switch settings.APIType {
	case "", "openai":
		return NewOpenAIProvider(settings), nil
	default:
		return NewGollmProvider(settings.APIType, settings)
	}
}

// Model returns the active model identifier.
func (g *Gateway) Model() string { return g.model }

// TotalInputTokens returns the cumulative input tokens submitted so far.
func (g *Gateway) TotalInputTokens() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totalInputTokens
}

// TotalCompletionTokens returns the cumulative completion tokens observed.
func (g *Gateway) TotalCompletionTokens() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totalCompletionTokens
}

// checkTokenLimit fails with a TokenLimitError when the request would push
// the running input total past the configured ceiling.
func (g *Gateway) checkTokenLimit(needed int) error {
	if g.maxInputTokens <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.totalInputTokens+needed > g.maxInputTokens {
		return &TokenLimitError{Current: g.totalInputTokens, Needed: needed, Max: g.maxInputTokens}
	}
	return nil
}

func (g *Gateway) updateTokenCounts(input, completion int) {
	g.mu.Lock()
	g.totalInputTokens += input
	g.totalCompletionTokens += completion
	total := g.totalInputTokens
	g.mu.Unlock()
	g.logger.Info("token usage",
		zap.String("model", g.model),
		zap.Int("input", input),
		zap.Int("completion", completion),
		zap.Int("cumulative_input", total))
}

// formatMessages validates and normalizes a message batch into transport
// records. Every message must carry a recognized role. An attachment is
// folded into an image content part only when the model is multimodal;
// otherwise it is silently dropped. Records with neither content nor tool
// calls are excluded, not rejected.
func formatMessages(messages []schema.Message, supportsImages bool) ([]map[string]any, error) {
	formatted := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		if !msg.Role.Valid() {
			return nil, &ArgumentError{Message: fmt.Sprintf("invalid role: %s", msg.Role)}
		}
		rec := msg.Record()
		if img, ok := rec["base64_image"].(string); ok {
			delete(rec, "base64_image")
			if supportsImages {
				parts := contentToParts(rec["content"])
				parts = append(parts, map[string]any{
					"type": "image_url",
					"image_url": map[string]any{
						"url": "data:image/jpeg;base64," + img,
					},
				})
				rec["content"] = parts
			}
		}
		_, hasContent := rec["content"]
		_, hasCalls := rec["tool_calls"]
		if hasContent || hasCalls {
			formatted = append(formatted, rec)
		}
	}
	return formatted, nil
}

func contentToParts(content any) []any {
	switch v := content.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []any{map[string]any{"type": "text", "text": v}}
	case []any:
		return v
	default:
		return nil
	}
}

func (g *Gateway) buildRequest(records []map[string]any, stream bool, temperature *float64) Request {
	req := Request{
		Model:    g.model,
		Messages: records,
		Stream:   stream,
	}
	// Reasoning models take a completion token budget and no temperature;
	// the two parameter families are mutually exclusive.
	if IsReasoning(g.model) {
		req.MaxCompletionTokens = g.maxTokens
		return req
	}
	req.MaxTokens = g.maxTokens
	temp := g.temperature
	if temperature != nil {
		temp = *temperature
	}
	req.Temperature = &temp
	return req
}

// Ask sends a prompt and returns the model's text response.
func (g *Gateway) Ask(ctx context.Context, messages, systemMsgs []schema.Message, stream bool, temperature *float64) (string, error) {
	supportsImages := IsMultimodal(g.model)

	records, err := formatMessages(systemMsgs, supportsImages)
	if err != nil {
		return "", err
	}
	body, err := formatMessages(messages, supportsImages)
	if err != nil {
		return "", err
	}
	records = append(records, body...)

	inputTokens := g.counter.CountMessages(records)
	if err := g.checkTokenLimit(inputTokens); err != nil {
		return "", err
	}

	req := g.buildRequest(records, stream, temperature)
	if stream {
		return g.askStreaming(ctx, req, inputTokens)
	}

	completion, err := Retry(ctx, g.retry, func(ctx context.Context) (*Completion, error) {
		return g.provider.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}
	if completion == nil || completion.Content == "" {
		return "", &EmptyResponseError{}
	}
	g.updateTokenCounts(usedOrEstimated(completion.PromptTokens, inputTokens),
		usedOrEstimated(completion.CompletionTokens, g.counter.CountText(completion.Content)))
	return completion.Content, nil
}

func (g *Gateway) askStreaming(ctx context.Context, req Request, inputTokens int) (string, error) {
	ch, err := Retry(ctx, g.retry, func(ctx context.Context) (<-chan Chunk, error) {
		return g.provider.Stream(ctx, req)
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for chunk := range ch {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		sb.WriteString(chunk.Delta)
		if g.observer != nil && chunk.Delta != "" {
			g.observer(chunk.Delta)
		}
	}

	full := strings.TrimSpace(sb.String())
	if full == "" {
		return "", &EmptyResponseError{Message: "empty response from streaming LLM"}
	}
	g.updateTokenCounts(inputTokens, g.counter.CountText(full))
	return full, nil
}

// AskWithImages sends a prompt with attached images. The model must be in
// the multimodal set and the last message must be a user message the images
// can ride on. Each image is a string URL or a pre-built image_url record.
func (g *Gateway) AskWithImages(ctx context.Context, messages []schema.Message, images []any, systemMsgs []schema.Message, stream bool, temperature *float64) (string, error) {
	if !IsMultimodal(g.model) {
		return "", &CapabilityError{Model: g.model, Capability: "image input"}
	}
	if len(messages) == 0 || messages[len(messages)-1].Role != schema.RoleUser {
		return "", &ArgumentError{Message: "the last message must be from the user to attach images"}
	}

	records, err := formatMessages(systemMsgs, true)
	if err != nil {
		return "", err
	}
	body, err := formatMessages(messages, true)
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", &ArgumentError{Message: "no valid messages to attach images to"}
	}

	last := body[len(body)-1]
	parts := contentToParts(last["content"])
	for _, image := range images {
		switch img := image.(type) {
		case string:
			parts = append(parts, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": img},
			})
		case map[string]any:
			parts = append(parts, map[string]any{"type": "image_url", "image_url": img})
		default:
			return "", &ArgumentError{Message: fmt.Sprintf("unsupported image type: %T", image)}
		}
	}
	last["content"] = parts
	records = append(records, body...)

	inputTokens := g.counter.CountMessages(records)
	if err := g.checkTokenLimit(inputTokens); err != nil {
		return "", err
	}

	req := g.buildRequest(records, stream, temperature)
	if stream {
		return g.askStreaming(ctx, req, inputTokens)
	}

	completion, err := Retry(ctx, g.retry, func(ctx context.Context) (*Completion, error) {
		return g.provider.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}
	if completion == nil || completion.Content == "" {
		return "", &EmptyResponseError{}
	}
	g.updateTokenCounts(usedOrEstimated(completion.PromptTokens, inputTokens),
		usedOrEstimated(completion.CompletionTokens, g.counter.CountText(completion.Content)))
	return completion.Content, nil
}

// AskTool sends a prompt with tool descriptors and returns the structured
// response. A provider response with no choices returns (nil, nil), which is
// distinct from an error.
func (g *Gateway) AskTool(ctx context.Context, messages, systemMsgs []schema.Message, tools []map[string]any, choice schema.ToolChoice, temperature *float64) (*ToolResponse, error) {
	if !choice.Valid() {
		return nil, &ArgumentError{Message: fmt.Sprintf("invalid tool_choice: %s", choice)}
	}
	for _, t := range tools {
		if _, ok := t["type"]; !ok {
			return nil, &ArgumentError{Message: "each tool must be a dict with 'type' field"}
		}
	}

	supportsImages := IsMultimodal(g.model)
	records, err := formatMessages(systemMsgs, supportsImages)
	if err != nil {
		return nil, err
	}
	body, err := formatMessages(messages, supportsImages)
	if err != nil {
		return nil, err
	}
	records = append(records, body...)

	inputTokens := g.counter.CountMessages(records) + g.counter.CountToolDescriptors(tools)
	if err := g.checkTokenLimit(inputTokens); err != nil {
		return nil, err
	}

	req := g.buildRequest(records, false, temperature)
	req.Tools = tools
	req.ToolChoice = choice

	completion, err := Retry(ctx, g.retry, func(ctx context.Context) (*Completion, error) {
		return g.provider.Complete(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if completion == nil {
		return nil, nil
	}
	g.updateTokenCounts(usedOrEstimated(completion.PromptTokens, inputTokens),
		usedOrEstimated(completion.CompletionTokens, g.counter.CountText(completion.Content)))
	return &ToolResponse{Content: completion.Content, ToolCalls: completion.ToolCalls}, nil
}

func usedOrEstimated(reported, estimated int) int {
	if reported > 0 {
		return reported
	}
	return estimated
}
