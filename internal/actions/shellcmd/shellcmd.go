package shellcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

const (
	pluginID      = "shell-command"
	pluginVersion = "1.0.0"
)

// Config is the execution policy. An empty allow list permits any
// command that is not blocked.
type Config struct {
	AllowedCommands []string `mapstructure:"allowed_commands"`
	BlockedCommands []string `mapstructure:"blocked_commands"`
	AllowedPaths    []string `mapstructure:"allowed_paths"`
	Timeout         int      `mapstructure:"timeout"`
	MaxOutputSize   int      `mapstructure:"max_output_size"`
}

func defaultConfig() Config {
	return Config{
		BlockedCommands: []string{"rm", "rmdir", "dd", "mkfs", "fdisk", "format"},
		AllowedPaths:    []string{"/tmp", "/var/tmp"},
		Timeout:         300,
		MaxOutputSize:   1 << 20,
	}
}

// dangerousPatterns are rejected anywhere in a command line regardless
// of the allow and block lists.
var dangerousPatterns = []string{
	"rm -rf",
	":(){ :|:& };:",
	"chmod 777",
	"chown root",
}

type execResult struct {
	returnCode int
	stdout     string
	stderr     string
	duration   float64
}

// Plugin executes shell commands under a configurable policy, or
// fabricates plausible output when demo mode is enabled.
type Plugin struct {
	mu   sync.Mutex
	cfg  Config
	demo bool
	roll func() float64
}

func New() *Plugin {
	return &Plugin{
		cfg:  defaultConfig(),
		roll: rand.Float64,
	}
}

func (p *Plugin) Info() pluginapi.PluginInfo {
	now := time.Now()
	return pluginapi.PluginInfo{
		ID:          pluginID,
		Name:        "Shell Command",
		Description: "Executes shell commands safely with configurable restrictions",
		Version:     pluginVersion,
		Author:      "Stavily Team",
		License:     "MIT",
		Type:        string(pluginapi.CapabilityAction),
		Tags:        []string{"system", "command", "shell", "automation", "execution"},
		Categories:  []string{"system-management"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (p *Plugin) Initialize(ctx context.Context, config pluginapi.Config) error {
	cfg := defaultConfig()
	if err := mapstructure.Decode(config, &cfg); err != nil {
		return pluginapi.Errorf(pluginapi.ValidationError, "invalid configuration: %v", err)
	}

	if cfg.Timeout < 1 {
		return pluginapi.NewError(pluginapi.ValidationError, "timeout must be at least 1 second")
	}
	if cfg.MaxOutputSize < 1 {
		return pluginapi.NewError(pluginapi.ValidationError, "max output size must be positive")
	}

	demo := pluginapi.DemoMode()

	p.mu.Lock()
	p.cfg = cfg
	p.demo = demo
	p.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Bool("demo_mode", demo).
		Int("blocked_commands", len(cfg.BlockedCommands)).
		Int("timeout", cfg.Timeout).
		Msg("shell command executor initialized")
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Msg("shell command executor started")
	return nil
}

func (p *Plugin) Stop(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Msg("shell command executor stopped")
	return nil
}

func (p *Plugin) ExecuteAction(ctx context.Context, req *pluginapi.ActionRequest) (*pluginapi.ActionResult, error) {
	p.mu.Lock()
	cfg, demo := p.cfg, p.demo
	p.mu.Unlock()

	params := req.Parameters
	command := stringParam(params, "command", "")
	workingDir := stringParam(params, "working_dir", "/tmp")
	input := stringParam(params, "input", "")
	envVars := envParam(params["env_vars"])
	timeout := intParam(params, "timeout", cfg.Timeout)

	if command == "" {
		return failedResult("command parameter is required", nil), nil
	}
	if err := validateCommand(cfg, command, workingDir); err != nil {
		return failedResult(err.Error(), map[string]interface{}{"command": command}), nil
	}

	logger := zerolog.Ctx(ctx)
	var res execResult
	if demo {
		res = p.simulateCommand(logger, command)
	} else {
		var err error
		res, err = runCommand(ctx, command, workingDir, envVars, input, timeout, cfg.MaxOutputSize)
		if err != nil {
			logger.Error().Err(err).Str("command", command).Msg("command execution failed")
			return failedResult(err.Error(), map[string]interface{}{"command": command}), nil
		}
	}

	data := map[string]interface{}{
		"command":        command,
		"working_dir":    workingDir,
		"return_code":    res.returnCode,
		"stdout":         res.stdout,
		"stderr":         res.stderr,
		"execution_time": res.duration,
		"demo_mode":      demo,
	}
	if demo && res.returnCode != 0 {
		return &pluginapi.ActionResult{
			Status:   pluginapi.ResultFailed,
			Error:    res.stderr,
			Data:     data,
			Metadata: resultMetadata(),
		}, nil
	}

	logger.Info().
		Str("command", command).
		Int("return_code", res.returnCode).
		Float64("execution_time", res.duration).
		Msg("command executed")
	return &pluginapi.ActionResult{
		Status:   pluginapi.ResultCompleted,
		Data:     data,
		Metadata: resultMetadata(),
	}, nil
}

// simulateCommand fabricates output for well-known commands, with a
// small failure rate so error handling can be exercised.
func (p *Plugin) simulateCommand(logger *zerolog.Logger, command string) execResult {
	res := execResult{stdout: demoOutput(command), duration: 0.3}
	if p.roll() < 0.1 {
		res.returnCode = 1
		res.stdout = ""
		res.stderr = fmt.Sprintf("simulated error for command: %s", command)
	}
	logger.Info().
		Str("command", command).
		Int("return_code", res.returnCode).
		Msg("demo mode, command execution simulated")
	return res
}

func demoOutput(command string) string {
	switch {
	case strings.Contains(command, "ls"):
		return "file1.txt\nfile2.log\ndirectory1/\nscript.sh"
	case strings.Contains(command, "ps"):
		return "  PID TTY          TIME CMD\n 1234 pts/0    00:00:01 bash\n 5678 pts/0    00:00:00 ps"
	case strings.Contains(command, "df"):
		return "Filesystem     1K-blocks    Used Available Use% Mounted on\n/dev/sda1       20971520 8388608  12582912  40% /"
	case strings.Contains(command, "systemctl status"):
		return "systemd service status: active (running)"
	case strings.Contains(command, "grep"):
		return "match found: simulated grep result"
	}
	return fmt.Sprintf("simulated output for command: %s", command)
}

func (p *Plugin) ActionConfig() pluginapi.ConfigSchema {
	return pluginapi.ConfigSchema{
		Parameters: map[string]pluginapi.ParamSpec{
			"command": {
				Type:        "string",
				Description: "Shell command line to execute",
				Required:    true,
				Examples:    []interface{}{"df -h", "systemctl status nginx"},
			},
			"working_dir": {
				Type:        "string",
				Description: "Working directory for the command",
				Default:     "/tmp",
			},
			"env_vars": {
				Type:        "object",
				Description: "Extra environment variables for the command",
			},
			"input": {
				Type:        "string",
				Description: "Data piped to the command on stdin",
			},
			"timeout": {
				Type:        "integer",
				Description: "Execution timeout in seconds",
				Default:     300,
				Minimum:     bound(1),
				Maximum:     bound(3600),
			},
		},
		Required: []string{"command"},
		Examples: []map[string]interface{}{
			{"command": "df -h", "working_dir": "/tmp"},
			{"command": "grep ERROR app.log", "working_dir": "/var/tmp", "timeout": 30},
		},
		Description: "Shell command execution parameters",
		Timeout:     3600,
	}
}

// HealthChecks reports whether a shell is available and summarizes the
// active policy.
func (p *Plugin) HealthChecks(ctx context.Context) map[string]pluginapi.CheckResult {
	p.mu.Lock()
	cfg := p.cfg
	p.mu.Unlock()

	now := time.Now()
	shell := pluginapi.CheckResult{Status: pluginapi.HealthHealthy, Message: "/bin/sh available", ObservedAt: now}
	if _, err := os.Stat("/bin/sh"); err != nil {
		shell.Status = pluginapi.HealthUnhealthy
		shell.Message = "/bin/sh not found"
	}
	return map[string]pluginapi.CheckResult{
		"shell": shell,
		"exec_policy": {
			Status:     pluginapi.HealthHealthy,
			Message:    fmt.Sprintf("%d blocked commands, %d allowed roots", len(cfg.BlockedCommands), len(cfg.AllowedPaths)),
			ObservedAt: now,
		},
	}
}

// validateCommand enforces the execution policy: blocked executables,
// the optional allow list, restricted working directories, and known
// destructive patterns.
func validateCommand(cfg Config, command, workingDir string) error {
	tokens := strings.Fields(command)
	if len(tokens) == 0 {
		return errors.New("command is empty")
	}
	name := filepath.Base(tokens[0])

	for _, blocked := range cfg.BlockedCommands {
		if name == blocked {
			return fmt.Errorf("command %q is blocked for security", name)
		}
	}
	if len(cfg.AllowedCommands) > 0 && !contains(cfg.AllowedCommands, name) {
		return fmt.Errorf("command %q is not in the allowed list", name)
	}
	if len(cfg.AllowedPaths) > 0 {
		allowed := false
		for _, path := range cfg.AllowedPaths {
			if strings.HasPrefix(workingDir, path) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("working directory %q is not allowed", workingDir)
		}
	}
	lowered := strings.ToLower(command)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowered, pattern) {
			return fmt.Errorf("command contains dangerous pattern: %s", pattern)
		}
	}
	return nil
}

// runCommand executes the command line under /bin/sh with a hard
// deadline and capped output buffers.
func runCommand(ctx context.Context, command, workingDir string, envVars map[string]string, input string, timeout, maxOutput int) (execResult, error) {
	if info, err := os.Stat(workingDir); err != nil || !info.IsDir() {
		return execResult{}, fmt.Errorf("working directory does not exist: %s", workingDir)
	}
	if err := unix.Access(workingDir, unix.W_OK); err != nil {
		return execResult{}, fmt.Errorf("no write access to working directory: %s", workingDir)
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", command)
	cmd.Dir = workingDir
	if len(envVars) > 0 {
		cmd.Env = os.Environ()
		for k, v := range envVars {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	stdout := &cappedBuffer{max: maxOutput}
	stderr := &cappedBuffer{max: maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start).Seconds()

	if runCtx.Err() == context.DeadlineExceeded {
		return execResult{}, fmt.Errorf("command timed out after %d seconds", timeout)
	}
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return execResult{}, err
		}
		code = exitErr.ExitCode()
	}
	return execResult{
		returnCode: code,
		stdout:     stdout.String(),
		stderr:     stderr.String(),
		duration:   duration,
	}, nil
}

// cappedBuffer keeps at most max bytes and remembers whether anything
// was dropped.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	room := c.max - c.buf.Len()
	if room <= 0 {
		c.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		c.truncated = true
		c.buf.Write(p[:room])
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *cappedBuffer) String() string {
	if c.truncated {
		return c.buf.String() + "\n... [output truncated]"
	}
	return c.buf.String()
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func stringParam(params map[string]interface{}, key, fallback string) string {
	if s, ok := params[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func intParam(params map[string]interface{}, key string, fallback int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

func envParam(v interface{}) map[string]string {
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, item := range raw {
		if s, ok := item.(string); ok {
			out[k] = s
		}
	}
	return out
}

func failedResult(errMsg string, data map[string]interface{}) *pluginapi.ActionResult {
	return &pluginapi.ActionResult{
		Status:   pluginapi.ResultFailed,
		Error:    errMsg,
		Data:     data,
		Metadata: resultMetadata(),
	}
}

func resultMetadata() map[string]interface{} {
	hostname, _ := os.Hostname()
	return map[string]interface{}{
		"plugin_id":      pluginID,
		"plugin_version": pluginVersion,
		"execution_host": hostname,
	}
}

func bound(v float64) *float64 {
	return &v
}
