// Package tool defines the tool contract the agent step loop executes
// against, a registry for looking tools up by name, and the built-in tools
// every assembled agent ships with.
package tool

import "context"

// Tool is one callable capability exposed to the model. Parameters returns a
// JSON Schema in the wire map form providers expect; Execute receives the
// already-parsed argument object.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, input map[string]any) (*Result, error)
}

// Cleaner is implemented by tools that hold external resources (processes,
// sessions) needing teardown when the agent finishes.
type Cleaner interface {
	Cleanup() error
}
