package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/courtland/gambit/llm"
	"github.com/courtland/gambit/schema"
)

// State is the agent lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateFinished State = "finished"
	StateErrored  State = "error"
)

const (
	defaultMaxSteps           = 10
	defaultDuplicateThreshold = 2
)

// Stepper is the injected step implementation: one think/act cycle returning
// a human-readable summary line.
type Stepper interface {
	Step(ctx context.Context) (string, error)
}

// BaseConfig configures a Base agent.
type BaseConfig struct {
	Name           string
	Description    string
	SystemPrompt   string
	NextStepPrompt string

	LLM *llm.Gateway

	MaxSteps           int // default 10
	DuplicateThreshold int // default 2
	MemoryLimit        int // default schema.DefaultMaxMessages

	Logger *zap.Logger
}

// Base is the agent state machine. The step behavior itself is injected as a
// Stepper; Base owns the surrounding loop, the memory, and the budget.
type Base struct {
	Name           string
	Description    string
	SystemPrompt   string
	NextStepPrompt string

	LLM    *llm.Gateway
	Memory *schema.Memory

	MaxSteps           int
	DuplicateThreshold int

	RunID string

	state       State
	currentStep int
	stepper     Stepper
	logger      *zap.Logger
}

// NewBase builds an agent around the given stepper.
func NewBase(cfg BaseConfig, stepper Stepper) *Base {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.DuplicateThreshold <= 0 {
		cfg.DuplicateThreshold = defaultDuplicateThreshold
	}
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = schema.DefaultMaxMessages
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Base{
		Name:               cfg.Name,
		Description:        cfg.Description,
		SystemPrompt:       cfg.SystemPrompt,
		NextStepPrompt:     cfg.NextStepPrompt,
		LLM:                cfg.LLM,
		Memory:             schema.NewMemory(cfg.MemoryLimit),
		MaxSteps:           cfg.MaxSteps,
		DuplicateThreshold: cfg.DuplicateThreshold,
		RunID:              uuid.NewString(),
		state:              StateIdle,
		stepper:            stepper,
		logger:             cfg.Logger,
	}
}

// State returns the current lifecycle state.
func (b *Base) State() State { return b.state }

// CurrentStep returns the step counter.
func (b *Base) CurrentStep() int { return b.currentStep }

// SetStepper replaces the injected step implementation. Embedding agents use
// this to put themselves at the top of the dispatch chain.
func (b *Base) SetStepper(s Stepper) { b.stepper = s }

// Run drives the step loop until the stepper finishes, the budget runs out,
// or the context is cancelled. Only an idle agent can run. A step failure
// leaves the agent in the error state; exhausting the budget resets it to
// idle so it can be run again.
func (b *Base) Run(ctx context.Context, request string) (string, error) {
	if b.state != StateIdle {
		return "", &StateError{Current: b.state, Expected: StateIdle}
	}
	if request != "" {
		b.Memory.Add(schema.UserMessage(request))
	}

	prior := b.state
	b.state = StateRunning

	results, err := b.loop(ctx)
	if err != nil {
		b.state = StateErrored
		return "", err
	}
	if b.state == StateRunning {
		b.state = prior
	}

	if len(results) == 0 {
		return "No steps executed", nil
	}
	return strings.Join(results, "\n"), nil
}

func (b *Base) loop(ctx context.Context) ([]string, error) {
	var results []string
	for b.currentStep < b.MaxSteps && b.state != StateFinished {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.currentStep++
		b.logger.Info("executing step",
			zap.String("agent", b.Name),
			zap.String("run_id", b.RunID),
			zap.Int("step", b.currentStep),
			zap.Int("max_steps", b.MaxSteps))

		result, err := b.stepper.Step(ctx)
		if err != nil {
			return nil, err
		}
		if b.IsStuck() {
			b.handleStuck()
		}
		results = append(results, fmt.Sprintf("Step %d: %s", b.currentStep, result))
	}
	if b.currentStep >= b.MaxSteps {
		b.currentStep = 0
		b.state = StateIdle
		results = append(results, fmt.Sprintf("Terminated: Reached max steps (%d)", b.MaxSteps))
	}
	return results, nil
}

// Reset returns a finished or failed agent to idle with a fresh step counter.
// Memory is kept; callers wanting a clean slate clear it themselves.
func (b *Base) Reset() {
	b.state = StateIdle
	b.currentStep = 0
}

// IsStuck reports whether the latest message repeats earlier assistant
// content at least DuplicateThreshold times.
func (b *Base) IsStuck() bool {
	msgs := b.Memory.Messages()
	if len(msgs) < 2 {
		return false
	}
	last := msgs[len(msgs)-1]
	if last.Content == "" {
		return false
	}
	duplicates := 0
	for _, msg := range msgs[:len(msgs)-1] {
		if msg.Role == schema.RoleAssistant && msg.Content == last.Content {
			duplicates++
		}
	}
	return duplicates >= b.DuplicateThreshold
}

// handleStuck prepends the corrective instruction to the next-step prompt.
// Repeated stalls accumulate, which is intentional: the reminder grows
// louder.
func (b *Base) handleStuck() {
	b.NextStepPrompt = stuckPrompt + "\n" + b.NextStepPrompt
	b.logger.Warn("agent detected stuck state, added corrective prompt",
		zap.String("agent", b.Name),
		zap.String("run_id", b.RunID))
}

// MemoryUpdate carries the optional fields of an UpdateMemory call.
type MemoryUpdate struct {
	Base64Image string
	ToolName    string
	ToolCallID  string
}

// UpdateMemory appends a message of the given role to memory. Tool-role
// messages need the tool name and call id from the update.
func (b *Base) UpdateMemory(role schema.Role, content string, update *MemoryUpdate) error {
	var msg schema.Message
	switch role {
	case schema.RoleSystem:
		msg = schema.SystemMessage(content)
	case schema.RoleUser:
		msg = schema.UserMessage(content)
	case schema.RoleAssistant:
		msg = schema.AssistantMessage(content)
	case schema.RoleTool:
		if update == nil {
			return &llm.ArgumentError{Message: "tool messages need a tool name and call id"}
		}
		msg = schema.ToolMessage(content, update.ToolName, update.ToolCallID)
	default:
		return &llm.ArgumentError{Message: fmt.Sprintf("unsupported message role: %s", role)}
	}
	if update != nil && update.Base64Image != "" {
		msg = msg.WithImage(update.Base64Image)
	}
	b.Memory.Add(msg)
	return nil
}
