package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/courtland/gambit/tool"
)

// Toolset is one live MCP server connection and the proxy tools built from
// its catalog.
type Toolset struct {
	cfg     ServerConfig
	session *mcp.ClientSession
	logger  *zap.Logger
}

// Connect dials the configured server and returns a toolset over the session.
func Connect(ctx context.Context, cfg ServerConfig, logger *zap.Logger) (*Toolset, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	transport, err := cfg.buildTransport()
	if err != nil {
		return nil, err
	}
	return connect(ctx, cfg, transport, logger)
}

func connect(ctx context.Context, cfg ServerConfig, transport mcp.Transport, logger *zap.Logger) (*Toolset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "gambit",
		Version: "0.1.0",
	}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcptools: connect %s: %w", cfg.Name, err)
	}
	return &Toolset{cfg: cfg, session: session, logger: logger}, nil
}

// Name returns the configured server name.
func (ts *Toolset) Name() string { return ts.cfg.Name }

// Tools lists the server's current catalog as proxy tools. Agents call this
// again to pick up catalog changes.
func (ts *Toolset) Tools(ctx context.Context) ([]tool.Tool, error) {
	var tools []tool.Tool
	for remote, err := range ts.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("mcptools: list tools from %s: %w", ts.cfg.Name, err)
		}
		if remote == nil || strings.TrimSpace(remote.Name) == "" {
			continue
		}
		if !ts.cfg.allowed(remote.Name) {
			continue
		}
		tools = append(tools, &proxyTool{
			toolset:     ts,
			name:        exposedName(ts.cfg.Name, remote.Name),
			remoteName:  remote.Name,
			description: remote.Description,
			parameters:  normalizeSchema(remote.InputSchema),
		})
	}
	ts.logger.Info("mcp catalog listed",
		zap.String("server", ts.cfg.Name),
		zap.Int("tools", len(tools)))
	return tools, nil
}

// Close tears the session down.
func (ts *Toolset) Close() error {
	if ts.session == nil {
		return nil
	}
	err := ts.session.Close()
	ts.session = nil
	return err
}

// proxyTool forwards Execute calls to a remote MCP tool.
type proxyTool struct {
	toolset     *Toolset
	name        string
	remoteName  string
	description string
	parameters  map[string]any
}

func (t *proxyTool) Name() string               { return t.name }
func (t *proxyTool) Description() string        { return t.description }
func (t *proxyTool) Parameters() map[string]any { return t.parameters }

func (t *proxyTool) Execute(ctx context.Context, input map[string]any) (*tool.Result, error) {
	cancel := func() {}
	if timeout := t.toolset.cfg.CallTimeout; timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	res, err := t.toolset.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      t.remoteName,
		Arguments: input,
	})
	if err != nil {
		return nil, fmt.Errorf("mcptools: call %s/%s: %w", t.toolset.cfg.Name, t.remoteName, err)
	}
	if res == nil {
		return &tool.Result{}, nil
	}

	text := extractText(res.Content)
	if res.IsError {
		if text == "" {
			text = "remote tool reported an error"
		}
		return nil, &tool.Error{Message: text}
	}
	return &tool.Result{Output: text}, nil
}

// extractText concatenates the text parts of a tool response; non-text
// content falls back to its JSON form.
func extractText(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *mcp.TextContent:
			if text := strings.TrimSpace(v.Text); text != "" {
				parts = append(parts, text)
			}
		default:
			if raw, err := json.Marshal(v); err == nil {
				if text := strings.TrimSpace(string(raw)); text != "" && text != "{}" {
					parts = append(parts, text)
				}
			}
		}
	}
	return strings.Join(parts, "\n")
}

func normalizeSchema(schema any) map[string]any {
	if m, ok := schema.(map[string]any); ok && len(m) > 0 {
		return m
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil || len(out) == 0 {
		return map[string]any{"type": "object"}
	}
	return out
}

// ConnectAll dials every configured server, closing already-opened toolsets
// when a later one fails.
func ConnectAll(ctx context.Context, configs []ServerConfig, logger *zap.Logger) ([]*Toolset, error) {
	toolsets := make([]*Toolset, 0, len(configs))
	for _, cfg := range configs {
		ts, err := Connect(ctx, cfg, logger)
		if err != nil {
			for _, open := range toolsets {
				_ = open.Close()
			}
			return nil, err
		}
		toolsets = append(toolsets, ts)
	}
	return toolsets, nil
}
