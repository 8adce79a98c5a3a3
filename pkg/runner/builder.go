package runner

import (
	"context"
	"fmt"
	"os"
)

// Builder makes sure the benchmark binary exists.
type Builder struct {
	Runner *Runner

	// BinaryPath is where the build command leaves the executable.
	BinaryPath string

	// BuildCommand produces BinaryPath in release mode.
	BuildCommand string
}

// Build returns the binary path, running the build command first when
// force is set or the binary is missing.
func (b *Builder) Build(ctx context.Context, force bool) (string, error) {
	// Any stat failure means the binary cannot be run as is.
	_, statErr := os.Stat(b.BinaryPath)
	missing := statErr != nil

	if !force && !missing {
		b.Runner.logger().Debug("benchmark binary present, skipping build", "path", b.BinaryPath)
		return b.BinaryPath, nil
	}

	b.Runner.logger().Info("building benchmark binary",
		"command", b.BuildCommand,
		"forced", force,
		"missing", missing)

	// Compilers report progress on stderr, so only the exit status counts.
	if _, err := b.Runner.Run(ctx, b.BuildCommand, WithStderrTolerated()); err != nil {
		return "", fmt.Errorf("build benchmark binary: %w", err)
	}

	if _, err := os.Stat(b.BinaryPath); err != nil {
		return "", fmt.Errorf("benchmark binary not found after build: %w", err)
	}

	return b.BinaryPath, nil
}
