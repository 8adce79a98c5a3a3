// Package runner executes shell commands for the benchmark harness and
// builds the benchmark binary.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// CommandError is returned when a command writes to stderr or exits with a
// non-zero status.
type CommandError struct {
	Command  string
	Stderr   string
	ExitCode int
	Err      error // underlying exec error, if any
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	switch {
	case stderr != "":
		return fmt.Sprintf("command %q failed (exit %d): %s", e.Command, e.ExitCode, stderr)
	case e.Err != nil:
		return fmt.Sprintf("command %q failed (exit %d): %v", e.Command, e.ExitCode, e.Err)
	default:
		return fmt.Sprintf("command %q failed (exit %d)", e.Command, e.ExitCode)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner runs commands through a shell, synchronously.
type Runner struct {
	// Shell is the shell binary. Defaults to "sh".
	Shell string

	// Dir is the working directory for commands. Empty means the current one.
	Dir string

	// Logger for command tracing.
	Logger *slog.Logger
}

// New creates a Runner that logs to logger.
func New(logger *slog.Logger) *Runner {
	return &Runner{
		Shell:  "sh",
		Logger: logger,
	}
}

type runOptions struct {
	env            []string
	tolerateStderr bool
}

// Option customizes a single Run call.
type Option func(*runOptions)

// WithEnv adds KEY=VALUE pairs to the command environment.
func WithEnv(env ...string) Option {
	return func(o *runOptions) {
		o.env = append(o.env, env...)
	}
}

// WithStderrTolerated logs stderr output instead of treating it as a
// failure. Only the exit status decides success.
func WithStderrTolerated() Option {
	return func(o *runOptions) {
		o.tolerateStderr = true
	}
}

// Run executes command via the shell and returns its stdout.
// Any stderr output is a *CommandError unless WithStderrTolerated is given.
func (r *Runner) Run(ctx context.Context, command string, opts ...Option) (string, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = r.Dir
	if len(o.env) > 0 {
		cmd.Env = append(os.Environ(), o.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	startTime := time.Now()
	err := cmd.Run()
	duration := time.Since(startTime)

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	r.logger().Debug("ran command",
		"command", command,
		"duration", duration,
		"exit_code", exitCode,
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len())

	if err != nil {
		return stdout.String(), &CommandError{
			Command:  command,
			Stderr:   stderr.String(),
			ExitCode: exitCode,
			Err:      err,
		}
	}

	if stderr.Len() > 0 {
		if !o.tolerateStderr {
			return stdout.String(), &CommandError{
				Command:  command,
				Stderr:   stderr.String(),
				ExitCode: exitCode,
			}
		}
		r.logger().Warn("command wrote to stderr",
			"command", command,
			"stderr", strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
