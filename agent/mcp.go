package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/courtland/gambit/schema"
	"github.com/courtland/gambit/tool"
	"github.com/courtland/gambit/tool/mcptools"
)

const defaultRefreshInterval = 5

// MCPConfig configures an MCPAgent.
type MCPConfig struct {
	ToolCallConfig

	// Servers are the MCP endpoints to connect at construction.
	Servers []mcptools.ServerConfig

	// RefreshInterval is the number of steps between catalog refreshes.
	// Default 5.
	RefreshInterval int
}

// MCPAgent is a tool-calling agent whose registry is fed by one or more MCP
// servers. The remote catalog is re-listed periodically so tools that appear
// or disappear on the server side are reflected mid-run, and the model is
// told about the change.
type MCPAgent struct {
	*ToolCallAgent

	toolsets     []*mcptools.Toolset
	refresh      int
	sinceRefresh int
	remote       map[string]bool
}

// NewMCPAgent connects to the configured servers and builds the agent. Only
// the terminate tool finishes the run: remote tools never end it implicitly.
func NewMCPAgent(ctx context.Context, cfg MCPConfig) (*MCPAgent, error) {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	toolsets, err := mcptools.ConnectAll(ctx, cfg.Servers, cfg.Logger)
	if err != nil {
		return nil, err
	}

	if cfg.Tools == nil {
		cfg.Tools = tool.NewRegistry(cfg.Logger, Terminate())
	}
	cfg.Finish = func(name string, _ *tool.Result) bool {
		return strings.EqualFold(name, Terminate().Name())
	}

	a, err := NewToolCallAgent(cfg.ToolCallConfig)
	if err != nil {
		closeToolsets(toolsets, cfg.Logger)
		return nil, err
	}

	m := &MCPAgent{
		ToolCallAgent: a,
		toolsets:      toolsets,
		refresh:       cfg.RefreshInterval,
		remote:        make(map[string]bool),
	}
	m.SetStepper(m)

	if _, _, err := m.RefreshTools(ctx); err != nil {
		closeToolsets(toolsets, cfg.Logger)
		return nil, err
	}
	return m, nil
}

// Step refreshes the remote catalog on schedule, then runs the normal
// think/act cycle.
func (m *MCPAgent) Step(ctx context.Context) (string, error) {
	m.sinceRefresh++
	if m.sinceRefresh >= m.refresh {
		m.sinceRefresh = 0
		if _, _, err := m.RefreshTools(ctx); err != nil {
			m.logger.Warn("tool catalog refresh failed",
				zap.String("agent", m.Name), zap.Error(err))
		}
	}
	return m.ToolCallAgent.Step(ctx)
}

// RefreshTools re-lists every connected server and diffs the result against
// the registry. Changes are recorded as a system message so the model knows
// its capabilities moved.
func (m *MCPAgent) RefreshTools(ctx context.Context) (added, removed []string, err error) {
	current := make(map[string]tool.Tool)
	for _, ts := range m.toolsets {
		tools, err := ts.Tools(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, t := range tools {
			current[t.Name()] = t
		}
	}

	for name, t := range current {
		if !m.remote[name] {
			m.tools.Add(t)
			added = append(added, name)
		}
	}
	for name := range m.remote {
		if _, ok := current[name]; !ok {
			m.tools.Remove(name)
			removed = append(removed, name)
		}
	}

	m.remote = make(map[string]bool, len(current))
	for name := range current {
		m.remote[name] = true
	}

	sort.Strings(added)
	sort.Strings(removed)
	if len(added) > 0 || len(removed) > 0 {
		m.logger.Info("remote tool catalog changed",
			zap.String("agent", m.Name),
			zap.Strings("added", added),
			zap.Strings("removed", removed))
		m.Memory.Add(schema.SystemMessage(catalogChangeNote(added, removed)))
	}
	return added, removed, nil
}

func catalogChangeNote(added, removed []string) string {
	var parts []string
	if len(added) > 0 {
		parts = append(parts, fmt.Sprintf("new tools available: %s", strings.Join(added, ", ")))
	}
	if len(removed) > 0 {
		parts = append(parts, fmt.Sprintf("tools no longer available: %s", strings.Join(removed, ", ")))
	}
	return "Tool catalog updated. " + strings.Join(parts, "; ")
}

// Cleanup closes the MCP sessions after the usual tool teardown.
func (m *MCPAgent) Cleanup() {
	m.ToolCallAgent.Cleanup()
	closeToolsets(m.toolsets, m.logger)
	m.toolsets = nil
}

// Run drives the loop and always cleans up afterwards.
func (m *MCPAgent) Run(ctx context.Context, request string) (string, error) {
	defer m.Cleanup()
	return m.Base.Run(ctx, request)
}

func closeToolsets(toolsets []*mcptools.Toolset, logger *zap.Logger) {
	for _, ts := range toolsets {
		if err := ts.Close(); err != nil {
			logger.Error("closing mcp session failed",
				zap.String("server", ts.Name()), zap.Error(err))
		}
	}
}
