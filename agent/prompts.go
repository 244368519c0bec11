package agent

const (
	// DefaultSystemPrompt seeds a tool-calling agent that was not given a
	// persona of its own.
	DefaultSystemPrompt = "You are an agent that can execute tool calls"

	// DefaultNextStepPrompt reminds the model how to end the run.
	DefaultNextStepPrompt = "If you want to stop interaction, use `terminate` tool/function call."

	// stuckPrompt is prepended to the next-step prompt when the agent keeps
	// producing the same response.
	stuckPrompt = "Observed duplicate responses. Consider new strategies and avoid repeating ineffective paths already attempted."
)
