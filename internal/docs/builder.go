package docs

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// CommandBuilder shells out to an external builder binary with the crate
// name, version and output directory as arguments. The binary is responsible
// for its own sandboxing.
type CommandBuilder struct {
	Command string
	DataDir string
}

// Build invokes the configured command. The output directory is created
// first so the builder can write into it directly.
func (b *CommandBuilder) Build(ctx context.Context, job Job) error {
	outDir := filepath.Join(b.DataDir, "docs", job.Name, job.Version)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create docs output dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.Command, job.Name, job.Version, outDir)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("docs build failed: %w: %s", err, output)
	}
	return nil
}

// NopBuilder is used when no builder command is configured; jobs are
// acknowledged and discarded.
type NopBuilder struct{}

func (NopBuilder) Build(context.Context, Job) error {
	return nil
}
