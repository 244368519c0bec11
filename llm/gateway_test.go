package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/courtland/gambit/schema"
)

// stubProvider replays a scripted sequence of completions and records every
// request it receives.
type stubProvider struct {
	completions []*Completion
	errs        []error
	chunks      []Chunk
	requests    []Request
	calls       int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	s.requests = append(s.requests, req)
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(s.completions) {
		return s.completions[i], nil
	}
	return nil, errors.New("stub exhausted")
}

func (s *stubProvider) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	s.requests = append(s.requests, req)
	ch := make(chan Chunk, len(s.chunks))
	for _, c := range s.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func newTestGateway(t *testing.T, settings Settings, provider Provider) *Gateway {
	t.Helper()
	gw, err := NewGateway(settings,
		WithProvider(provider),
		WithEncoding(wordEncoding{}),
		WithRetryPolicy(fastPolicy(2)))
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	return gw
}

func TestAskReturnsContent(t *testing.T) {
	stub := &stubProvider{completions: []*Completion{{Content: "hello back", PromptTokens: 12, CompletionTokens: 3}}}
	gw := newTestGateway(t, Settings{Model: "gpt-4o-mini", MaxTokens: 100}, stub)

	got, err := gw.Ask(context.Background(), []schema.Message{schema.UserMessage("hello")}, nil, false, nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "hello back" {
		t.Errorf("expected %q, got %q", "hello back", got)
	}
	if gw.TotalInputTokens() != 12 || gw.TotalCompletionTokens() != 3 {
		t.Errorf("counters not updated from usage: input=%d completion=%d",
			gw.TotalInputTokens(), gw.TotalCompletionTokens())
	}
}

func TestAskEmptyContent(t *testing.T) {
	stub := &stubProvider{completions: []*Completion{{Content: ""}}}
	gw := newTestGateway(t, Settings{Model: "gpt-4o-mini"}, stub)

	_, err := gw.Ask(context.Background(), []schema.Message{schema.UserMessage("hi")}, nil, false, nil)
	var emptyErr *EmptyResponseError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyResponseError, got %v", err)
	}
}

func TestAskTokenBudgetEnforcedBeforeProviderCall(t *testing.T) {
	stub := &stubProvider{}
	gw := newTestGateway(t, Settings{Model: "gpt-4o-mini", MaxInputTokens: 3}, stub)

	_, err := gw.Ask(context.Background(),
		[]schema.Message{schema.UserMessage("this prompt has far too many words to fit")}, nil, false, nil)
	var tokenErr *TokenLimitError
	if !errors.As(err, &tokenErr) {
		t.Fatalf("expected TokenLimitError, got %v", err)
	}
	if stub.calls != 0 {
		t.Errorf("provider must not be called on a budget breach, got %d calls", stub.calls)
	}
}

func TestAskStreamingAccumulates(t *testing.T) {
	stub := &stubProvider{chunks: []Chunk{{Delta: "hel"}, {Delta: "lo"}}}
	var observed string
	gw, err := NewGateway(Settings{Model: "gpt-4o-mini"},
		WithProvider(stub),
		WithEncoding(wordEncoding{}),
		WithStreamObserver(func(delta string) { observed += delta }))
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}

	got, err := gw.Ask(context.Background(), []schema.Message{schema.UserMessage("hi")}, nil, true, nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected accumulated %q, got %q", "hello", got)
	}
	if observed != "hello" {
		t.Errorf("observer missed deltas: %q", observed)
	}
}

func TestAskRetriesTransientFailure(t *testing.T) {
	stub := &stubProvider{
		errs:        []error{ProviderErrorFromStatus("stub", 503, "unavailable", nil), nil},
		completions: []*Completion{nil, {Content: "recovered"}},
	}
	gw := newTestGateway(t, Settings{Model: "gpt-4o-mini"}, stub)

	got, err := gw.Ask(context.Background(), []schema.Message{schema.UserMessage("hi")}, nil, false, nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "recovered" || stub.calls != 2 {
		t.Errorf("expected recovery on attempt 2, got %q after %d calls", got, stub.calls)
	}
}

func TestAskInvalidRole(t *testing.T) {
	gw := newTestGateway(t, Settings{Model: "gpt-4o-mini"}, &stubProvider{})
	_, err := gw.Ask(context.Background(), []schema.Message{{Role: "developer", Content: "x"}}, nil, false, nil)
	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected ArgumentError, got %v", err)
	}
}

func TestFormatMessagesExcludesEmptyRecords(t *testing.T) {
	records, err := formatMessages([]schema.Message{
		schema.UserMessage("keep me"),
		{Role: schema.RoleAssistant}, // neither content nor tool calls
	}, false)
	if err != nil {
		t.Fatalf("formatMessages: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected empty record excluded, got %d records", len(records))
	}
}

func TestFormatMessagesImageFoldAndDrop(t *testing.T) {
	msg := schema.UserMessage("see attached").WithImage("aW1n")

	// Multimodal: attachment folds into an image_url content part.
	records, err := formatMessages([]schema.Message{msg}, true)
	if err != nil {
		t.Fatalf("formatMessages: %v", err)
	}
	parts, ok := records[0]["content"].([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("expected text+image parts, got %v", records[0]["content"])
	}
	if _, present := records[0]["base64_image"]; present {
		t.Error("base64_image must be removed after folding")
	}

	// Non-multimodal: attachment is silently dropped.
	records, err = formatMessages([]schema.Message{msg}, false)
	if err != nil {
		t.Fatalf("formatMessages: %v", err)
	}
	if _, present := records[0]["base64_image"]; present {
		t.Error("base64_image must be dropped for non-multimodal models")
	}
	if records[0]["content"] != "see attached" {
		t.Errorf("text content must survive the drop, got %v", records[0]["content"])
	}
}

func TestAskWithImagesRequiresMultimodalModel(t *testing.T) {
	gw := newTestGateway(t, Settings{Model: "gpt-3.5-turbo"}, &stubProvider{})
	_, err := gw.AskWithImages(context.Background(),
		[]schema.Message{schema.UserMessage("look")}, []any{"https://example.com/a.png"}, nil, false, nil)
	var capErr *CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapabilityError, got %v", err)
	}
}

func TestAskWithImagesRequiresTrailingUserMessage(t *testing.T) {
	gw := newTestGateway(t, Settings{Model: "gpt-4o"}, &stubProvider{})
	_, err := gw.AskWithImages(context.Background(),
		[]schema.Message{schema.AssistantMessage("done")}, []any{"https://example.com/a.png"}, nil, false, nil)
	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected ArgumentError, got %v", err)
	}
}

func TestAskWithImagesAppendsParts(t *testing.T) {
	stub := &stubProvider{completions: []*Completion{{Content: "a cat"}}}
	gw := newTestGateway(t, Settings{Model: "gpt-4o"}, stub)

	_, err := gw.AskWithImages(context.Background(),
		[]schema.Message{schema.UserMessage("what is this")},
		[]any{"https://example.com/cat.png"}, nil, false, nil)
	if err != nil {
		t.Fatalf("AskWithImages: %v", err)
	}

	last := stub.requests[0].Messages[len(stub.requests[0].Messages)-1]
	parts, ok := last["content"].([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("expected text part plus image part, got %v", last["content"])
	}
}

func TestAskToolInvalidChoice(t *testing.T) {
	gw := newTestGateway(t, Settings{Model: "gpt-4o-mini"}, &stubProvider{})
	_, err := gw.AskTool(context.Background(), []schema.Message{schema.UserMessage("x")}, nil, nil, "named", nil)
	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected ArgumentError, got %v", err)
	}
}

func TestAskToolDescriptorMissingType(t *testing.T) {
	gw := newTestGateway(t, Settings{Model: "gpt-4o-mini"}, &stubProvider{})
	tools := []map[string]any{{"function": map[string]any{"name": "shell"}}}
	_, err := gw.AskTool(context.Background(), []schema.Message{schema.UserMessage("x")}, nil, tools, schema.ToolChoiceAuto, nil)
	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected ArgumentError, got %v", err)
	}
}

func TestAskToolNoChoicesReturnsNil(t *testing.T) {
	stub := &stubProvider{completions: []*Completion{nil}}
	gw := newTestGateway(t, Settings{Model: "gpt-4o-mini"}, stub)

	resp, err := gw.AskTool(context.Background(), []schema.Message{schema.UserMessage("x")}, nil, nil, schema.ToolChoiceAuto, nil)
	if err != nil {
		t.Fatalf("AskTool: %v", err)
	}
	if resp != nil {
		t.Errorf("expected nil response for no choices, got %+v", resp)
	}
}

func TestAskToolReturnsCalls(t *testing.T) {
	stub := &stubProvider{completions: []*Completion{{
		Content: "running it",
		ToolCalls: []schema.ToolCall{{
			ID: "c1", Type: "function",
			Function: schema.FunctionCall{Name: "shell", Arguments: `{"command":"ls"}`},
		}},
	}}}
	gw := newTestGateway(t, Settings{Model: "gpt-4o-mini"}, stub)

	tools := []map[string]any{{
		"type":     "function",
		"function": map[string]any{"name": "shell", "description": "run", "parameters": map[string]any{"type": "object"}},
	}}
	resp, err := gw.AskTool(context.Background(), []schema.Message{schema.UserMessage("list files")}, nil, tools, schema.ToolChoiceAuto, nil)
	if err != nil {
		t.Fatalf("AskTool: %v", err)
	}
	if resp == nil || len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Function.Name != "shell" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if stub.requests[0].ToolChoice != schema.ToolChoiceAuto {
		t.Errorf("tool choice not forwarded: %q", stub.requests[0].ToolChoice)
	}
}

func TestReasoningModelParameterFamily(t *testing.T) {
	stub := &stubProvider{completions: []*Completion{{Content: "thought"}}}
	gw := newTestGateway(t, Settings{Model: "o3-mini", MaxTokens: 2048}, stub)

	if _, err := gw.Ask(context.Background(), []schema.Message{schema.UserMessage("hi")}, nil, false, nil); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	req := stub.requests[0]
	if req.MaxCompletionTokens != 2048 || req.MaxTokens != 0 || req.Temperature != nil {
		t.Errorf("reasoning models take max_completion_tokens only: %+v", req)
	}
}

func TestStandardModelParameterFamily(t *testing.T) {
	stub := &stubProvider{completions: []*Completion{{Content: "sure"}}}
	gw := newTestGateway(t, Settings{Model: "gpt-4o-mini", MaxTokens: 2048, Temperature: 0.5}, stub)

	if _, err := gw.Ask(context.Background(), []schema.Message{schema.UserMessage("hi")}, nil, false, nil); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	req := stub.requests[0]
	if req.MaxTokens != 2048 || req.MaxCompletionTokens != 0 || req.Temperature == nil || *req.Temperature != 0.5 {
		t.Errorf("standard models take max_tokens plus temperature: %+v", req)
	}
}

func TestRegistrySubstitutesStubs(t *testing.T) {
	reg := NewRegistry(map[string]Settings{})
	stub := &stubProvider{completions: []*Completion{{Content: "stubbed"}}}
	gw := newTestGateway(t, Settings{Model: "gpt-4o-mini"}, stub)
	reg.Register("default", gw)

	got, err := reg.Get("default")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != gw {
		t.Error("expected the registered gateway back")
	}

	// Unknown names fall back to the default block.
	if got, err = reg.Get("vision"); err != nil || got != gw {
		t.Errorf("expected fallback to default, got %v, %v", got, err)
	}
}

func TestRegistryUnknownNameNoDefault(t *testing.T) {
	reg := NewRegistry(map[string]Settings{})
	if _, err := reg.Get("missing"); err == nil {
		t.Error("expected error for unknown name without default")
	}
}
