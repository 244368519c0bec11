// Package llm wraps chat-completion providers behind a budget-enforcing
// model gateway.
//
// # Architecture
//
// The package is layered:
//
//   - Provider contract: the Provider interface plus the openai-go and gollm
//     adapters that translate normalized requests into SDK calls.
//   - Utilities: the token counter, the retry helper with its retryability
//     predicate, the error taxonomy, and the model capability catalog.
//   - Gateway: Ask, AskWithImages, and AskTool over a single provider, with
//     input-token budget enforcement and running usage counters.
//   - Registry: named gateway construction for dependency injection.
//
// # Quick Start
//
//	gw, _ := llm.NewGateway(llm.Settings{
//	    Model:          "gpt-4o",
//	    APIKey:         os.Getenv("OPENAI_API_KEY"),
//	    MaxTokens:      4096,
//	    MaxInputTokens: 100000,
//	})
//
//	text, err := gw.Ask(ctx, []schema.Message{schema.UserMessage("Hello")}, nil, false, nil)
//
// # Budget Enforcement
//
// When max_input_tokens is configured, every operation prices its formatted
// request with the token counter before calling the provider and fails with
// a TokenLimitError when the running total would be exceeded. TokenLimitError
// is never retried; transient provider failures are retried under a fixed
// delay policy.
//
// # Tool Calling
//
// AskTool accepts tool descriptors in the wire form
// {type:"function", function:{name, description, parameters}} and returns
// the model's textual content together with any proposed tool calls. A
// provider response with no choices yields (nil, nil) rather than an error.
package llm
