package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"

	"github.com/courtland/gambit/schema"
)

// GollmProvider routes non-OpenAI api_types (anthropic, ollama, groq, ...)
// through the gollm library. gollm flattens the conversation into a single
// prompt, so tool calls may come back embedded in the response text; the
// adapter recovers them.
type GollmProvider struct {
	provider string
	llm      gollm.LLM
}

// NewGollmProvider creates an adapter for the named gollm provider.
func NewGollmProvider(provider string, settings Settings) (*GollmProvider, error) {
	maxTokens := settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	opts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(settings.Model),
		gollm.SetMaxTokens(maxTokens),
		gollm.SetTemperature(settings.Temperature),
		gollm.SetMaxRetries(0), // the gateway owns retry
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if settings.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(settings.APIKey))
	}
	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("create gollm LLM for provider %s: %w", provider, err)
	}
	return &GollmProvider{provider: provider, llm: llm}, nil
}

// Name returns the provider identifier.
func (p *GollmProvider) Name() string { return p.provider }

// Complete sends a blocking request.
func (p *GollmProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	prompt := p.translateRequest(req)
	text, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, p.translateError(err)
	}

	calls := p.parseToolCalls(text)
	return &Completion{
		Content:   p.stripToolCallJSON(text, calls),
		ToolCalls: calls,
	}, nil
}

// Stream sends a streaming request, falling back to a single-delta emit when
// the underlying provider cannot stream.
func (p *GollmProvider) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	prompt := p.translateRequest(req)
	ch := make(chan Chunk, 64)

	if !p.llm.SupportsStreaming() {
		go func() {
			defer close(ch)
			text, err := p.llm.Generate(ctx, prompt)
			if err != nil {
				ch <- Chunk{Err: p.translateError(err)}
				return
			}
			ch <- Chunk{Delta: text}
		}()
		return ch, nil
	}

	stream, err := p.llm.Stream(ctx, prompt)
	if err != nil {
		return nil, p.translateError(err)
	}
	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			token, err := stream.Next(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				ch <- Chunk{Err: p.translateError(err)}
				return
			}
			if token == nil {
				continue
			}
			ch <- Chunk{Delta: token.Text}
		}
	}()
	return ch, nil
}

// translateRequest flattens the record batch into a gollm prompt.
func (p *GollmProvider) translateRequest(req Request) *gollm.Prompt {
	var systemPrompt string
	var parts []string

	for _, rec := range req.Messages {
		role, _ := rec["role"].(string)
		text := flattenText(rec["content"])
		switch schema.Role(role) {
		case schema.RoleSystem:
			systemPrompt += text + "\n"
		case schema.RoleUser:
			parts = append(parts, text)
		case schema.RoleAssistant:
			if text != "" {
				parts = append(parts, "[Assistant]: "+text)
			}
			if calls, ok := rec["tool_calls"].([]schema.ToolCall); ok {
				for _, call := range calls {
					parts = append(parts, fmt.Sprintf("[Assistant tool call]: %s(%s)",
						call.Function.Name, call.Function.Arguments))
				}
			}
		case schema.RoleTool:
			parts = append(parts, "[Tool Result]: "+text)
		}
	}

	promptText := strings.Join(parts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	promptOpts := []gollm.PromptOption{}
	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(systemPrompt), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens > 0 {
		promptOpts = append(promptOpts, gollm.WithMaxLength(req.MaxTokens))
	} else if req.MaxCompletionTokens > 0 {
		promptOpts = append(promptOpts, gollm.WithMaxLength(req.MaxCompletionTokens))
	}

	if len(req.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			fn, ok := t["function"].(map[string]any)
			if !ok {
				continue
			}
			name, _ := fn["name"].(string)
			desc, _ := fn["description"].(string)
			params, _ := fn["parameters"].(map[string]any)
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        name,
					Description: desc,
					Parameters:  params,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
	}
	if req.ToolChoice != "" {
		promptOpts = append(promptOpts, gollm.WithToolChoice(string(req.ToolChoice)))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// parseToolCalls recovers tool calls gollm returned embedded in the
// response text.
func (p *GollmProvider) parseToolCalls(text string) []schema.ToolCall {
	start := strings.Index(text, `[{"name"`)
	if start == -1 {
		return nil
	}

	var rawCalls []struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(text[start:]), &rawCalls); err != nil {
		return nil
	}

	calls := make([]schema.ToolCall, 0, len(rawCalls))
	for _, rc := range rawCalls {
		calls = append(calls, schema.ToolCall{
			ID:   "call_" + uuid.New().String()[:8],
			Type: "function",
			Function: schema.FunctionCall{
				Name:      rc.Name,
				Arguments: string(rc.Arguments),
			},
		})
	}
	return calls
}

func (p *GollmProvider) stripToolCallJSON(text string, calls []schema.ToolCall) string {
	if len(calls) == 0 {
		return text
	}
	if idx := strings.Index(text, `[{"name"`); idx != -1 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}

// translateError classifies a gollm error by message content; gollm does not
// expose structured status codes.
func (p *GollmProvider) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "401"), strings.Contains(lower, "unauthorized"), strings.Contains(lower, "invalid api key"):
		return ProviderErrorFromStatus(p.provider, 401, msg, err)
	case strings.Contains(lower, "403"), strings.Contains(lower, "forbidden"):
		return ProviderErrorFromStatus(p.provider, 403, msg, err)
	case strings.Contains(lower, "404"), strings.Contains(lower, "not found"):
		return ProviderErrorFromStatus(p.provider, 404, msg, err)
	case strings.Contains(lower, "429"), strings.Contains(lower, "rate limit"):
		return ProviderErrorFromStatus(p.provider, 429, msg, err)
	case strings.Contains(lower, "context length"), strings.Contains(lower, "too many tokens"):
		return ProviderErrorFromStatus(p.provider, 413, msg, err)
	case strings.Contains(lower, "500"), strings.Contains(lower, "internal server"):
		return ProviderErrorFromStatus(p.provider, 500, msg, err)
	case strings.Contains(lower, "timeout"):
		return ProviderErrorFromStatus(p.provider, 408, msg, err)
	default:
		return &ProviderError{Provider: p.provider, Message: msg, Retryable: true, Cause: err}
	}
}
