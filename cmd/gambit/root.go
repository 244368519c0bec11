package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/courtland/gambit/agent"
	"github.com/courtland/gambit/config"
	"github.com/courtland/gambit/llm"
	"github.com/courtland/gambit/tool"
	"github.com/courtland/gambit/tool/mcptools"
)

var (
	configPath string
	verbose    bool
	promptFlag string
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4"))
	stepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

var rootCmd = &cobra.Command{
	Use:   "gambit [prompt]",
	Short: "Run an autonomous tool-calling agent",
	Long: `gambit drives an LLM through a think/act loop: the model proposes tool
calls, gambit executes them, and the observations feed the next step until
the model terminates or the step budget runs out.

Usage:
  gambit "Summarize the files in this directory"
  gambit --prompt "Clean up /tmp" --verbose
  echo "What is in go.mod?" | gambit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		request := resolvePrompt(args)
		if request == "" {
			return cmd.Help()
		}
		return runAgent(cmd, request)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Prompt for the agent (overrides positional args)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// resolvePrompt prefers the flag, then positional args, then piped stdin.
func resolvePrompt(args []string) string {
	if promptFlag != "" {
		return promptFlag
	}
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		var sb strings.Builder
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			sb.WriteString(scanner.Text())
			sb.WriteByte('\n')
		}
		return strings.TrimSpace(sb.String())
	}
	return ""
}

func createLogger() *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

func runAgent(cmd *cobra.Command, request string) error {
	logger := createLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	settings, ok := cfg.LLMFor("default")
	if !ok {
		return fmt.Errorf("no llm settings: add an llm.default block to the config")
	}

	registry := llm.NewRegistry(gatewaySettings(cfg),
		llm.WithLogger(logger),
		llm.WithRetryPolicy(llm.RetryPolicy{
			Attempts: cfg.Retry.Attempts,
			Delay:    time.Duration(cfg.Retry.DelaySeconds) * time.Second,
		}),
		llm.WithStreamObserver(func(delta string) {
			fmt.Fprint(cmd.OutOrStdout(), delta)
		}))
	gateway, err := registry.Get("default")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), faintStyle.Render("Using model: "+settings.Model))

	tools := tool.NewRegistry(logger, tool.Terminate{}, &tool.Shell{})

	toolsets, err := connectServers(cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, ts := range toolsets {
			if err := ts.Close(); err != nil {
				logger.Error("closing mcp session failed", zap.String("server", ts.Name()), zap.Error(err))
			}
		}
	}()
	for _, ts := range toolsets {
		remote, err := ts.Tools(cmd.Context())
		if err != nil {
			return err
		}
		tools.AddAll(remote...)
	}

	runner, err := agent.NewToolCallAgent(agent.ToolCallConfig{
		BaseConfig: agent.BaseConfig{
			Name:               "gambit",
			LLM:                gateway,
			MaxSteps:           cfg.Agent.MaxSteps,
			DuplicateThreshold: cfg.Agent.DuplicateThreshold,
			MemoryLimit:        cfg.Agent.MemoryLimit,
			Logger:             logger,
		},
		Tools:      tools,
		MaxObserve: cfg.Agent.MaxObserve,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render("gambit"))
	result, err := runner.Run(cmd.Context(), request)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(result, "\n") {
		fmt.Fprintln(cmd.OutOrStdout(), stepStyle.Render(line))
	}
	return nil
}

// gatewaySettings converts every configured LLM block into gateway settings.
func gatewaySettings(cfg *config.Config) map[string]llm.Settings {
	out := make(map[string]llm.Settings, len(cfg.LLM))
	for name, s := range cfg.LLM {
		out[name] = llm.Settings{
			Model:          s.Model,
			BaseURL:        s.BaseURL,
			APIKey:         s.APIKey,
			APIType:        s.APIType,
			MaxTokens:      s.MaxTokens,
			MaxInputTokens: s.MaxInputTokens,
			Temperature:    s.Temperature,
		}
	}
	return out
}

func connectServers(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger) ([]*mcptools.Toolset, error) {
	if len(cfg.MCPServers) == 0 {
		return nil, nil
	}
	configs := make([]mcptools.ServerConfig, 0, len(cfg.MCPServers))
	for _, s := range cfg.MCPServers {
		configs = append(configs, mcptools.ServerConfig{
			Name:         s.Name,
			Transport:    mcptools.Transport(s.Transport),
			Command:      s.Command,
			Args:         s.Args,
			Env:          s.Env,
			URL:          s.URL,
			AllowedTools: s.AllowedTools,
			CallTimeout:  time.Duration(s.CallTimeoutSeconds) * time.Second,
		})
	}
	return mcptools.ConnectAll(cmd.Context(), configs, logger)
}
