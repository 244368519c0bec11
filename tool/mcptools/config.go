// Package mcptools connects to Model Context Protocol servers and exposes
// their tool catalogs as regular agent tools. Each connected server becomes a
// Toolset; each remote tool becomes a proxy whose Execute forwards the call
// over the session.
package mcptools

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Transport selects how a server is reached.
type Transport string

const (
	TransportStdio      Transport = "stdio"
	TransportSSE        Transport = "sse"
	TransportStreamable Transport = "streamable"
)

// ServerConfig describes one MCP server endpoint.
type ServerConfig struct {
	Name      string
	Transport Transport

	// Stdio transport.
	Command string
	Args    []string
	Env     map[string]string

	// HTTP transports.
	URL string

	// AllowedTools restricts which remote tools are exposed. Empty means all.
	AllowedTools []string

	// CallTimeout bounds each proxied tool call. 0 means no extra bound.
	CallTimeout time.Duration
}

func (cfg *ServerConfig) validate() error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("mcptools: server name is required")
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}
	switch cfg.Transport {
	case TransportStdio:
		if strings.TrimSpace(cfg.Command) == "" {
			return fmt.Errorf("mcptools: server %q needs a command for stdio transport", cfg.Name)
		}
	case TransportSSE, TransportStreamable:
		if strings.TrimSpace(cfg.URL) == "" {
			return fmt.Errorf("mcptools: server %q needs a url for %s transport", cfg.Name, cfg.Transport)
		}
	default:
		return fmt.Errorf("mcptools: server %q has unsupported transport %q", cfg.Name, cfg.Transport)
	}
	return nil
}

func (cfg *ServerConfig) buildTransport() (mcp.Transport, error) {
	switch cfg.Transport {
	case TransportStdio:
		cmd := exec.Command(cfg.Command, cfg.Args...)
		if len(cfg.Env) > 0 {
			env := os.Environ()
			for k, v := range cfg.Env {
				env = append(env, k+"="+v)
			}
			cmd.Env = env
		}
		return &mcp.CommandTransport{Command: cmd}, nil
	case TransportSSE:
		return &mcp.SSEClientTransport{Endpoint: cfg.URL}, nil
	case TransportStreamable:
		return &mcp.StreamableClientTransport{Endpoint: cfg.URL}, nil
	default:
		return nil, fmt.Errorf("mcptools: unsupported transport %q", cfg.Transport)
	}
}

func (cfg *ServerConfig) allowed(name string) bool {
	if len(cfg.AllowedTools) == 0 {
		return true
	}
	for _, allowed := range cfg.AllowedTools {
		if allowed == name {
			return true
		}
	}
	return false
}
