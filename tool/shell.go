package tool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

const (
	defaultShellTimeout  = 120 * time.Second
	defaultMaxOutputSize = 16 * 1024
)

// sensitiveEnvSuffixes are case-insensitive suffixes for environment
// variables excluded from child processes.
var sensitiveEnvSuffixes = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// safeEnvVars are always passed through regardless of filtering.
var safeEnvVars = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true,
	"LANG": true, "TERM": true, "TMPDIR": true,
	"GOPATH": true, "GOROOT": true,
	"XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true, "XDG_CACHE_HOME": true,
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, suffix := range sensitiveEnvSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

func filterEnvironment() []string {
	var filtered []string
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if safeEnvVars[parts[0]] || !isSensitiveEnvVar(parts[0]) {
			filtered = append(filtered, env)
		}
	}
	return filtered
}

// Shell runs a command line through the platform shell. Output is capped,
// sensitive environment variables are filtered, and the whole process group
// is killed on timeout so shell pipelines do not leak children.
type Shell struct {
	WorkingDir string
	Timeout    time.Duration // per-call default; 0 means defaultShellTimeout
	MaxOutput  int           // byte cap on captured output; 0 means defaultMaxOutputSize
}

func (s *Shell) Name() string { return "shell" }

func (s *Shell) Description() string {
	return "Execute a shell command and return its combined output. " +
		"Use this for file inspection, builds, and any other command-line work."
}

func (s *Shell) Parameters() map[string]any {
	return schemaRecord(&jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"command": {
				Type:        "string",
				Description: "The command line to execute.",
			},
			"timeout_seconds": {
				Type:        "integer",
				Description: "Optional timeout in seconds for this command.",
			},
		},
		Required: []string{"command"},
	})
}

func (s *Shell) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	command, ok := StringArg(input, "command")
	if !ok || strings.TrimSpace(command) == "" {
		return &Result{Error: "missing required argument: command"}, nil
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultShellTimeout
	}
	if secs, ok := IntArg(input, "timeout_seconds"); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	shell, shellArg := "/bin/sh", "-c"
	if runtime.GOOS == "windows" {
		shell, shellArg = "cmd.exe", "/c"
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, command)
	cmd.Dir = s.WorkingDir
	cmd.Env = filterEnvironment()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := s.capOutput(combineStreams(stdout.String(), stderr.String()))

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
			return nil, &Error{Message: fmt.Sprintf("command timed out after %s", timeout)}
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &Result{
				Output: output,
				Error:  fmt.Sprintf("command exited with code %d", exitErr.ExitCode()),
			}, nil
		}
		return nil, fmt.Errorf("shell: %w", err)
	}
	return &Result{Output: output}, nil
}

func (s *Shell) capOutput(output string) string {
	max := s.MaxOutput
	if max <= 0 {
		max = defaultMaxOutputSize
	}
	if len(output) <= max {
		return output
	}
	return output[:max] + "\n... (output truncated)"
}

func combineStreams(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return stderr
	}
	return stdout + "\n" + stderr
}
