package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/courtland/gambit/schema"
)

// OpenAIProvider adapts the openai-go SDK to the Provider contract. It also
// serves OpenAI-compatible endpoints through the base_url setting.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider creates an adapter from gateway settings.
func NewOpenAIProvider(settings Settings) *OpenAIProvider {
	opts := []option.RequestOption{}
	if settings.APIKey != "" {
		opts = append(opts, option.WithAPIKey(settings.APIKey))
	}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...)}
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string { return "openai" }

// Complete sends a blocking chat completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, p.translateError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	msg := resp.Choices[0].Message
	completion := &Completion{
		Content:          msg.Content,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}
	for _, tc := range msg.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, schema.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return completion, nil
}

// Stream sends a streaming chat completion request and returns a channel of
// text deltas.
func (p *OpenAIProvider) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	ch := make(chan Chunk, 64)
	go func() {
		defer close(ch)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				ch <- Chunk{Delta: delta}
			}
		}
		if err := stream.Err(); err != nil {
			ch <- Chunk{Err: p.translateError(err)}
		}
	}()
	return ch, nil
}

func (p *OpenAIProvider) buildParams(req Request) (openai.ChatCompletionNewParams, error) {
	msgs, err := p.convertMessages(req.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	params := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    req.Model,
	}
	if req.MaxCompletionTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxCompletionTokens))
	} else if req.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = param.NewOpt(*req.Temperature)
	}

	for _, t := range req.Tools {
		fn, ok := t["function"].(map[string]any)
		if !ok {
			return openai.ChatCompletionNewParams{}, &ArgumentError{Message: "tool descriptor missing function body"}
		}
		def := openai.FunctionDefinitionParam{}
		if name, ok := fn["name"].(string); ok {
			def.Name = name
		}
		if desc, ok := fn["description"].(string); ok {
			def.Description = param.NewOpt(desc)
		}
		if parameters, ok := fn["parameters"].(map[string]any); ok {
			def.Parameters = openai.FunctionParameters(parameters)
		}
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{Function: def})
	}
	if req.ToolChoice != "" {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: param.NewOpt(string(req.ToolChoice)),
		}
	}
	return params, nil
}

func (p *OpenAIProvider) convertMessages(records []map[string]any) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(records))
	for _, rec := range records {
		role, _ := rec["role"].(string)
		switch schema.Role(role) {
		case schema.RoleSystem:
			out = append(out, openai.SystemMessage(flattenText(rec["content"])))
		case schema.RoleUser:
			msg, err := p.convertUserMessage(rec)
			if err != nil {
				return nil, err
			}
			out = append(out, msg)
		case schema.RoleAssistant:
			out = append(out, p.convertAssistantMessage(rec))
		case schema.RoleTool:
			id, _ := rec["tool_call_id"].(string)
			out = append(out, openai.ToolMessage(flattenText(rec["content"]), id))
		default:
			return nil, &ArgumentError{Message: fmt.Sprintf("invalid role: %s", role)}
		}
	}
	return out, nil
}

func (p *OpenAIProvider) convertUserMessage(rec map[string]any) (openai.ChatCompletionMessageParamUnion, error) {
	switch content := rec["content"].(type) {
	case string:
		return openai.UserMessage(content), nil
	case []any:
		parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(content))
		for _, raw := range content {
			part, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			switch part["type"] {
			case "text":
				text, _ := part["text"].(string)
				parts = append(parts, openai.TextContentPart(text))
			case "image_url":
				img, _ := part["image_url"].(map[string]any)
				url, _ := img["url"].(string)
				parts = append(parts, openai.ImageContentPart(
					openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
			}
		}
		return openai.ChatCompletionMessageParamUnion{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: parts,
				},
			},
		}, nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, &ArgumentError{Message: "user message must carry string or part-list content"}
	}
}

func (p *OpenAIProvider) convertAssistantMessage(rec map[string]any) openai.ChatCompletionMessageParamUnion {
	assistant := &openai.ChatCompletionAssistantMessageParam{}
	if content := flattenText(rec["content"]); content != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: param.NewOpt(content),
		}
	}
	if calls, ok := rec["tool_calls"].([]schema.ToolCall); ok {
		for _, call := range calls {
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      call.Function.Name,
					Arguments: call.Function.Arguments,
				},
			})
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: assistant}
}

// flattenText reduces string-or-parts content to its textual pieces.
func flattenText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var text string
		for _, raw := range v {
			if part, ok := raw.(map[string]any); ok && part["type"] == "text" {
				if s, ok := part["text"].(string); ok {
					text += s
				}
			}
		}
		return text
	default:
		return ""
	}
}

func (p *OpenAIProvider) translateError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return ProviderErrorFromStatus("openai", apierr.StatusCode, apierr.Message, err)
	}
	return &ProviderError{Provider: "openai", Message: err.Error(), Retryable: true, Cause: err}
}
