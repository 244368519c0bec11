package tool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Registry holds the tools available to one agent, preserving registration
// order for descriptor export and bulk invocation. Remote toolsets add and
// remove entries while the agent runs, so access is guarded by an RWMutex.
type Registry struct {
	mu     sync.RWMutex
	tools  []Tool
	index  map[string]Tool
	logger *zap.Logger
}

// NewRegistry creates a registry seeded with the given tools. A nil logger
// means no logging.
func NewRegistry(logger *zap.Logger, tools ...Tool) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		index:  make(map[string]Tool),
		logger: logger,
	}
	r.AddAll(tools...)
	return r
}

// Add registers a tool. A duplicate name is a no-op: the first registration
// wins and the attempt is logged.
func (r *Registry) Add(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	if _, exists := r.index[name]; exists {
		r.logger.Warn("tool already registered, skipping", zap.String("tool", name))
		return
	}
	r.index[name] = t
	r.tools = append(r.tools, t)
}

// AddAll registers every tool in order, with Add's duplicate handling.
func (r *Registry) AddAll(tools ...Tool) {
	for _, t := range tools {
		r.Add(t)
	}
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.index[name]
	return t, ok
}

// Remove unregisters the named tool. Unknown names are a no-op.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[name]; !ok {
		return
	}
	delete(r.index, name)
	for i, t := range r.tools {
		if t.Name() == name {
			r.tools = append(r.tools[:i], r.tools[i+1:]...)
			break
		}
	}
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name()
	}
	return names
}

// Tools returns a snapshot of the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Params exports every tool as a function descriptor in the wire shape the
// gateway forwards to providers.
func (r *Registry) Params() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	params := make([]map[string]any, 0, len(r.tools))
	for _, t := range r.tools {
		params = append(params, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name(),
				"description": t.Description(),
				"parameters":  t.Parameters(),
			},
		})
	}
	return params
}

// Invoke executes the named tool. An unknown name and a user-facing tool
// failure both come back as error-carrying Results the model can read; any
// other error is a defect and propagates to the caller.
func (r *Registry) Invoke(ctx context.Context, name string, input map[string]any) (*Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return &Result{Error: fmt.Sprintf("Tool %s is invalid", name)}, nil
	}
	result, err := t.Execute(ctx, input)
	if err != nil {
		var toolErr *Error
		if errors.As(err, &toolErr) {
			return &Result{Error: toolErr.Error()}, nil
		}
		return nil, err
	}
	if result == nil {
		result = &Result{}
	}
	return result, nil
}

// InvokeAll runs every registered tool with no arguments, in registration
// order, collecting successes and user-facing failures. A tool whose
// execution returns a defect is skipped with a log entry rather than
// aborting the sweep.
func (r *Registry) InvokeAll(ctx context.Context) []*Result {
	results := make([]*Result, 0, len(r.Tools()))
	for _, t := range r.Tools() {
		result, err := r.Invoke(ctx, t.Name(), nil)
		if err != nil {
			r.logger.Warn("tool failed during bulk invocation",
				zap.String("tool", t.Name()),
				zap.Error(err))
			continue
		}
		results = append(results, result)
	}
	return results
}
