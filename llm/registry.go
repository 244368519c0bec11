package llm

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Registry maps configuration names to gateway instances. It is the
// dependency-injected replacement for a process-global gateway map: the
// embedding application builds one registry from its config and hands it to
// agents, so tests can substitute stub gateways without global mutation.
type Registry struct {
	mu       sync.Mutex
	settings map[string]Settings
	gateways map[string]*Gateway
	opts     []GatewayOption
	logger   *zap.Logger
}

// NewRegistry creates a registry over named settings blocks. The options are
// applied to every gateway the registry constructs.
func NewRegistry(settings map[string]Settings, opts ...GatewayOption) *Registry {
	return &Registry{
		settings: settings,
		gateways: make(map[string]*Gateway),
		opts:     opts,
		logger:   zap.NewNop(),
	}
}

// Register installs a pre-built gateway under a name, replacing any settings
// block of the same name.
func (r *Registry) Register(name string, gw *Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[name] = gw
}

// Get returns the gateway for a name, constructing and caching it on first
// use. An unknown name falls back to the "default" settings block.
func (r *Registry) Get(name string) (*Gateway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gw, ok := r.gateways[name]; ok {
		return gw, nil
	}
	settings, ok := r.settings[name]
	if !ok {
		if gw, ok := r.gateways["default"]; ok {
			return gw, nil
		}
		if settings, ok = r.settings["default"]; !ok {
			return nil, fmt.Errorf("no LLM settings for %q and no default block", name)
		}
	}
	gw, err := NewGateway(settings, r.opts...)
	if err != nil {
		return nil, fmt.Errorf("build gateway %q: %w", name, err)
	}
	r.gateways[name] = gw
	return gw, nil
}
