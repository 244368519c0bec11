// Package config loads runtime settings from YAML or TOML files with
// GAMBIT_-prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Defaults applied before any file or environment value.
const (
	DefaultMaxSteps           = 30
	DefaultDuplicateThreshold = 2
	DefaultMemoryLimit        = 100
	DefaultRetryAttempts      = 6
	DefaultRetryDelaySeconds  = 1
	DefaultRequestTimeoutSecs = 300
)

// LLMSettings is one named model configuration block.
type LLMSettings struct {
	Model          string  `mapstructure:"model"`
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	APIType        string  `mapstructure:"api_type"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	MaxInputTokens int     `mapstructure:"max_input_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
}

// AgentSettings tunes the step loop.
type AgentSettings struct {
	MaxSteps           int `mapstructure:"max_steps"`
	DuplicateThreshold int `mapstructure:"duplicate_threshold"`
	MaxObserve         int `mapstructure:"max_observe"`
	MemoryLimit        int `mapstructure:"memory_limit"`
}

// RetrySettings tunes the gateway retry policy.
type RetrySettings struct {
	Attempts     int `mapstructure:"attempts"`
	DelaySeconds int `mapstructure:"delay_seconds"`
}

// MCPServer describes one remote tool server.
type MCPServer struct {
	Name               string            `mapstructure:"name"`
	Transport          string            `mapstructure:"transport"`
	Command            string            `mapstructure:"command"`
	Args               []string          `mapstructure:"args"`
	Env                map[string]string `mapstructure:"env"`
	URL                string            `mapstructure:"url"`
	AllowedTools       []string          `mapstructure:"allowed_tools"`
	CallTimeoutSeconds int               `mapstructure:"call_timeout_seconds"`
}

// Config is the full runtime configuration.
type Config struct {
	LLM                map[string]LLMSettings `mapstructure:"llm"`
	Agent              AgentSettings          `mapstructure:"agent"`
	Retry              RetrySettings          `mapstructure:"retry"`
	MCPServers         []MCPServer            `mapstructure:"mcp_servers"`
	RequestTimeoutSecs int                    `mapstructure:"request_timeout_seconds"`
}

// Load reads configuration from the given file, or searches `.` and
// `./config` for a `config.{yaml,toml}` when path is empty. A missing file is
// fine in the search case: defaults plus environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GAMBIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("agent.max_steps", DefaultMaxSteps)
	v.SetDefault("agent.duplicate_threshold", DefaultDuplicateThreshold)
	v.SetDefault("agent.memory_limit", DefaultMemoryLimit)
	v.SetDefault("agent.max_observe", 0)
	v.SetDefault("retry.attempts", DefaultRetryAttempts)
	v.SetDefault("retry.delay_seconds", DefaultRetryDelaySeconds)
	v.SetDefault("request_timeout_seconds", DefaultRequestTimeoutSecs)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

// LLMFor returns the named settings block, falling back to "default".
func (c *Config) LLMFor(name string) (LLMSettings, bool) {
	if s, ok := c.LLM[name]; ok {
		return s, true
	}
	s, ok := c.LLM["default"]
	return s, ok
}
