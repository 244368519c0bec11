package tool

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

const terminateDescription = "Terminate the interaction when the request is met OR if the assistant cannot proceed further with the task. " +
	"When you have finished all the tasks, call this tool to end the work."

// Terminate is the built-in tool the model calls to end the run. The agent
// treats it as a special tool: a successful call transitions the agent to its
// finished state.
type Terminate struct{}

func (Terminate) Name() string { return "terminate" }

func (Terminate) Description() string { return terminateDescription }

func (Terminate) Parameters() map[string]any {
	return schemaRecord(&jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"status": {
				Type:        "string",
				Description: "The finish status of the interaction.",
				Enum:        []any{"success", "failure"},
			},
		},
		Required: []string{"status"},
	})
}

func (Terminate) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	status, _ := StringArg(input, "status")
	return &Result{
		Output: fmt.Sprintf("The interaction has been completed with status: %s", status),
	}, nil
}
