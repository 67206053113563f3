package preflight

import (
	"context"

	"darkroom/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every startup check for the given config: both pipeline
// directories, the vision endpoint, and the embed binary.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckVision(ctx, cfg.Vision),
		CheckExiftool(ctx, cfg.ExiftoolBinary()),
	}
	return results
}
