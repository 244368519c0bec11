package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/courtland/gambit/llm"
	"github.com/courtland/gambit/schema"
	"github.com/courtland/gambit/tool"
)

const defaultToolCallMaxSteps = 30

// FinishPredicate decides whether a special tool's result ends the run.
type FinishPredicate func(name string, result *tool.Result) bool

// ToolCallConfig configures a ToolCallAgent.
type ToolCallConfig struct {
	BaseConfig

	Tools      *tool.Registry
	ToolChoice schema.ToolChoice // default auto

	// SpecialTools are the tool names that can finish the run. Default:
	// just the terminate tool.
	SpecialTools []string

	// MaxObserve caps each tool observation in bytes. 0 means unlimited.
	MaxObserve int

	// Finish overrides the default always-finish predicate for special
	// tools.
	Finish FinishPredicate
}

// ToolCallAgent is the standard think/act agent: each step asks the model
// for tool calls, executes them in order, and records the observations.
type ToolCallAgent struct {
	*Base

	tools        *tool.Registry
	toolChoice   schema.ToolChoice
	specialTools []string
	maxObserve   int
	finish       FinishPredicate

	pendingCalls []schema.ToolCall
	currentImage string
}

// NewToolCallAgent builds a tool-calling agent. The tool-choice mode is
// validated here rather than at step time.
func NewToolCallAgent(cfg ToolCallConfig) (*ToolCallAgent, error) {
	if cfg.ToolChoice == "" {
		cfg.ToolChoice = schema.ToolChoiceAuto
	}
	if !cfg.ToolChoice.Valid() {
		return nil, &llm.ArgumentError{Message: fmt.Sprintf("invalid tool_choice: %s", cfg.ToolChoice)}
	}
	if cfg.Tools == nil {
		cfg.Tools = tool.NewRegistry(cfg.Logger, Terminate())
	}
	if len(cfg.SpecialTools) == 0 {
		cfg.SpecialTools = []string{Terminate().Name()}
	}
	if cfg.Finish == nil {
		cfg.Finish = func(string, *tool.Result) bool { return true }
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultToolCallMaxSteps
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.NextStepPrompt == "" {
		cfg.NextStepPrompt = DefaultNextStepPrompt
	}

	a := &ToolCallAgent{
		tools:        cfg.Tools,
		toolChoice:   cfg.ToolChoice,
		specialTools: cfg.SpecialTools,
		maxObserve:   cfg.MaxObserve,
		finish:       cfg.Finish,
	}
	a.Base = NewBase(cfg.BaseConfig, a)
	return a, nil
}

// Terminate returns the built-in run-ending tool.
func Terminate() tool.Tool { return tool.Terminate{} }

// Tools exposes the agent's registry.
func (a *ToolCallAgent) Tools() *tool.Registry { return a.tools }

// Step runs one think/act cycle.
func (a *ToolCallAgent) Step(ctx context.Context) (string, error) {
	if !a.Think(ctx) {
		return "Thinking complete - no action needed", nil
	}
	return a.Act(ctx)
}

// Think asks the model what to do next and records the exchange. It reports
// whether Act should run; failures are absorbed into memory rather than
// returned, so the loop keeps its budget semantics.
func (a *ToolCallAgent) Think(ctx context.Context) bool {
	if a.NextStepPrompt != "" {
		a.Memory.Add(schema.UserMessage(a.NextStepPrompt))
	}

	var systemMsgs []schema.Message
	if a.SystemPrompt != "" {
		systemMsgs = []schema.Message{schema.SystemMessage(a.SystemPrompt)}
	}

	resp, err := a.LLM.AskTool(ctx, a.Memory.Messages(), systemMsgs, a.tools.Params(), a.toolChoice, nil)
	if err != nil {
		var tokenErr *llm.TokenLimitError
		if errors.As(err, &tokenErr) {
			a.logger.Error("token limit reached, ending run",
				zap.String("agent", a.Name), zap.Error(tokenErr))
			a.Memory.Add(schema.AssistantMessage(
				fmt.Sprintf("Maximum token limit reached, cannot continue execution: %s", tokenErr.Error())))
			a.state = StateFinished
			return false
		}
		a.recordThinkFailure(err)
		return false
	}
	if resp == nil {
		a.recordThinkFailure(errors.New("no response received from the LLM"))
		return false
	}

	calls := functionCalls(resp.ToolCalls)
	a.logger.Info("thinking complete",
		zap.String("agent", a.Name),
		zap.Int("tool_calls", len(calls)),
		zap.Bool("has_content", resp.Content != ""))

	if a.toolChoice == schema.ToolChoiceNone {
		if len(calls) > 0 {
			a.logger.Warn("model proposed tool calls while tools are disabled",
				zap.String("agent", a.Name))
		}
		a.pendingCalls = nil
		if resp.Content != "" {
			a.Memory.Add(schema.AssistantMessage(resp.Content))
			return true
		}
		return false
	}

	if len(calls) > 0 {
		a.Memory.Add(schema.FromToolCalls(resp.Content, calls))
	} else {
		a.Memory.Add(schema.AssistantMessage(resp.Content))
	}
	a.pendingCalls = calls

	if a.toolChoice == schema.ToolChoiceRequired {
		return true
	}
	return len(calls) > 0 || resp.Content != ""
}

func (a *ToolCallAgent) recordThinkFailure(err error) {
	a.logger.Error("think failed", zap.String("agent", a.Name), zap.Error(err))
	a.Memory.Add(schema.AssistantMessage(
		fmt.Sprintf("Error encountered while processing: %s", err.Error())))
}

// functionCalls keeps only function-kind tool calls; other kinds are not
// executable here.
func functionCalls(calls []schema.ToolCall) []schema.ToolCall {
	kept := calls[:0:0]
	for _, c := range calls {
		if c.Type == "function" {
			kept = append(kept, c)
		}
	}
	return kept
}

// Act executes the pending tool calls in order and records each observation
// as a tool message.
func (a *ToolCallAgent) Act(ctx context.Context) (string, error) {
	if len(a.pendingCalls) == 0 {
		if a.toolChoice == schema.ToolChoiceRequired {
			return "", ErrToolCallRequired
		}
		msgs := a.Memory.Messages()
		if len(msgs) > 0 && msgs[len(msgs)-1].Content != "" {
			return msgs[len(msgs)-1].Content, nil
		}
		return "No content or commands to execute", nil
	}

	results := make([]string, 0, len(a.pendingCalls))
	for _, call := range a.pendingCalls {
		a.currentImage = ""
		result := a.executeTool(ctx, call)
		if a.maxObserve > 0 {
			result = tool.TruncateObservation(result, a.maxObserve)
		}

		msg := schema.ToolMessage(result, call.Function.Name, call.ID)
		if a.currentImage != "" {
			msg = msg.WithImage(a.currentImage)
		}
		a.Memory.Add(msg)
		results = append(results, result)
	}
	return strings.Join(results, "\n\n"), nil
}

// executeTool runs one call and renders the observation. Every failure mode
// becomes model-readable text; nothing here returns a Go error.
func (a *ToolCallAgent) executeTool(ctx context.Context, call schema.ToolCall) string {
	name := call.Function.Name
	if name == "" {
		return "Error: Invalid command format"
	}
	if _, ok := a.tools.Get(name); !ok {
		return fmt.Sprintf("Error: Unknown tool '%s'", name)
	}

	args, err := tool.ParseArguments(call.Function.Arguments)
	if err != nil {
		a.logger.Error("bad tool arguments",
			zap.String("tool", name),
			zap.String("arguments", call.Function.Arguments),
			zap.Error(err))
		return fmt.Sprintf("Error: Error parsing arguments for %s: Invalid JSON format", name)
	}

	result, err := a.tools.Invoke(ctx, name, args)
	if err != nil {
		return fmt.Sprintf("Error: Tool '%s' encountered a problem: %s", name, err.Error())
	}

	a.handleSpecialTool(name, result)
	if result.Base64Image != "" {
		a.currentImage = result.Base64Image
	}

	if observation := result.String(); observation != "" {
		return fmt.Sprintf("Observed output of cmd `%s` executed:\n%s", name, observation)
	}
	return fmt.Sprintf("Cmd `%s` completed with no output", name)
}

// handleSpecialTool transitions the agent to finished when a special tool's
// result satisfies the finish predicate.
func (a *ToolCallAgent) handleSpecialTool(name string, result *tool.Result) {
	if !a.isSpecialTool(name) {
		return
	}
	if a.finish(name, result) {
		a.logger.Info("special tool completed the run",
			zap.String("agent", a.Name),
			zap.String("tool", name))
		a.state = StateFinished
	}
}

func (a *ToolCallAgent) isSpecialTool(name string) bool {
	for _, special := range a.specialTools {
		if strings.EqualFold(special, name) {
			return true
		}
	}
	return false
}

// Cleanup tears down every registered tool that holds resources. Failures
// are logged and swallowed so one bad tool cannot block the rest.
func (a *ToolCallAgent) Cleanup() {
	for _, t := range a.tools.Tools() {
		cleaner, ok := t.(tool.Cleaner)
		if !ok {
			continue
		}
		if err := cleaner.Cleanup(); err != nil {
			a.logger.Error("tool cleanup failed",
				zap.String("tool", t.Name()),
				zap.Error(err))
		}
	}
}

// Run drives the loop and always cleans up afterwards, whatever the outcome.
func (a *ToolCallAgent) Run(ctx context.Context, request string) (string, error) {
	defer a.Cleanup()
	return a.Base.Run(ctx, request)
}
