// Package agent implements the autonomous step loop that drives a model
// through think/act cycles until it terminates, errors, or exhausts its step
// budget.
//
// # Architecture
//
// Base owns the lifecycle: the idle/running/finished/error state machine,
// the bounded conversation memory, the step budget, and stuck-state
// detection. The actual step behavior is injected as a Stepper, so the loop
// logic is shared by every agent variant.
//
// ToolCallAgent is the standard stepper: each step asks the gateway for tool
// calls (Think), executes them through the tool registry in order (Act), and
// records every observation as a tool message the model sees next step. A
// special tool — by default terminate — ends the run.
//
// MCPAgent extends ToolCallAgent with remote tools discovered over the Model
// Context Protocol, refreshing the catalog periodically while the run is in
// flight.
//
// # Quick Start
//
//	gw, _ := llm.NewGateway(llm.Settings{Model: "gpt-4o-mini", APIKey: key})
//	a, _ := agent.NewToolCallAgent(agent.ToolCallConfig{
//		BaseConfig: agent.BaseConfig{Name: "assistant", LLM: gw},
//		Tools:      tool.NewRegistry(nil, tool.Terminate{}, &tool.Shell{}),
//	})
//	trace, err := a.Run(ctx, "List the files in /tmp and summarize them")
//
// Run returns a newline-joined trace of "Step N: ..." lines. An exhausted
// step budget resets the agent to idle so it can be run again; a finished or
// failed agent needs Reset first.
package agent
