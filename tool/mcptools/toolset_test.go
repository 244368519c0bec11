package mcptools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/courtland/gambit/tool"
)

func TestExposedNameSanitized(t *testing.T) {
	cases := []struct {
		server, original, want string
	}{
		{"demo", "echo", "demo__echo"},
		{"My Server", "Do-Thing", "my_server__do_thing"},
		{"", "", "mcp__tool"},
	}
	for _, tc := range cases {
		if got := exposedName(tc.server, tc.original); got != tc.want {
			t.Errorf("exposedName(%q, %q) = %q, want %q", tc.server, tc.original, got, tc.want)
		}
	}
}

func TestExposedNameCapped(t *testing.T) {
	long := strings.Repeat("abcdefgh", 12)
	name := exposedName(long, long)
	if len(name) > maxExposedNameLen {
		t.Fatalf("name too long: %d (%q)", len(name), name)
	}
	if !strings.Contains(name, "__") {
		t.Fatalf("expected namespaced name, got %q", name)
	}
	// Distinct long names must stay distinct after capping.
	other := exposedName(long, long+"x")
	if name == other {
		t.Error("capped names collided")
	}
}

func TestNormalizeSchemaFallback(t *testing.T) {
	got := normalizeSchema(struct {
		Type string `json:"type"`
	}{Type: "object"})
	if got["type"] != "object" {
		t.Fatalf("unexpected schema: %#v", got)
	}
	if got := normalizeSchema(nil); got["type"] != "object" {
		t.Fatalf("expected object fallback for nil schema, got %#v", got)
	}
}

type echoArgs struct {
	Text string `json:"text"`
}

func setupToolset(t *testing.T, cfg ServerConfig, configure func(*mcp.Server)) *Toolset {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "test-server",
		Version: "v0.0.1",
	}, nil)
	configure(server)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(context.Background(), serverTransport, nil)
	if err != nil {
		t.Fatalf("connect server: %v", err)
	}

	ts, err := connect(context.Background(), cfg, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect toolset: %v", err)
	}
	t.Cleanup(func() {
		_ = ts.Close()
		_ = serverSession.Wait()
	})
	return ts
}

func addEcho(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "echo",
		Description: "echoes text back",
		InputSchema: map[string]any{"type": "object"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, args echoArgs) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "echo: " + args.Text}},
		}, nil, nil
	})
}

func TestToolsetRoundTrip(t *testing.T) {
	ts := setupToolset(t, ServerConfig{Name: "demo", Transport: TransportStdio, Command: "unused"}, addEcho)

	tools, err := ts.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("expected one tool, got %d", len(tools))
	}
	proxy := tools[0]
	if proxy.Name() != "demo__echo" {
		t.Errorf("unexpected exposed name: %q", proxy.Name())
	}

	result, err := proxy.Execute(context.Background(), map[string]any{"text": "hello"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Output != "echo: hello" {
		t.Errorf("unexpected output: %q", result.Output)
	}
}

func TestToolsetReportedErrorBecomesToolError(t *testing.T) {
	ts := setupToolset(t, ServerConfig{Name: "demo", Transport: TransportStdio, Command: "unused"}, func(server *mcp.Server) {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "boom",
			InputSchema: map[string]any{"type": "object"},
		}, func(ctx context.Context, req *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: "it broke"}},
			}, nil, nil
		})
	})

	tools, err := ts.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools: %v", err)
	}
	_, err = tools[0].Execute(context.Background(), map[string]any{})
	var toolErr *tool.Error
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected tool.Error, got %v", err)
	}
	if !strings.Contains(toolErr.Message, "it broke") {
		t.Errorf("unexpected message: %q", toolErr.Message)
	}
}

func TestToolsetAllowList(t *testing.T) {
	cfg := ServerConfig{
		Name:         "demo",
		Transport:    TransportStdio,
		Command:      "unused",
		AllowedTools: []string{"echo"},
	}
	ts := setupToolset(t, cfg, func(server *mcp.Server) {
		addEcho(server)
		mcp.AddTool(server, &mcp.Tool{
			Name:        "hidden",
			InputSchema: map[string]any{"type": "object"},
		}, func(ctx context.Context, req *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{}, nil, nil
		})
	})

	tools, err := ts.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name() != "demo__echo" {
		names := make([]string, len(tools))
		for i, tl := range tools {
			names[i] = tl.Name()
		}
		t.Errorf("allow list not honored: %v", names)
	}
}

func TestServerConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  ServerConfig
		ok   bool
	}{
		{"stdio with command", ServerConfig{Name: "a", Transport: TransportStdio, Command: "srv"}, true},
		{"stdio missing command", ServerConfig{Name: "a", Transport: TransportStdio}, false},
		{"sse with url", ServerConfig{Name: "a", Transport: TransportSSE, URL: "http://localhost"}, true},
		{"sse missing url", ServerConfig{Name: "a", Transport: TransportSSE}, false},
		{"missing name", ServerConfig{Transport: TransportStdio, Command: "srv"}, false},
		{"bad transport", ServerConfig{Name: "a", Transport: "carrier-pigeon"}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.validate()
		if (err == nil) != tc.ok {
			t.Errorf("%s: unexpected result %v", tc.name, err)
		}
	}
}
