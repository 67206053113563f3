package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"darkroom/internal/api"
	"darkroom/internal/daemonctl"
	"darkroom/internal/ipc"
)

// depsReport is the JSON shape for `darkroom deps --json`.
type depsReport struct {
	Dependencies []ipc.DependencyStatus `json:"dependencies"`
	Summary      api.DependencySummary  `json:"summary"`
}

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, summary, err := resolveDependencyReport(cmd, ctx)
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, depsReport{Dependencies: deps, Summary: summary})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range dependencyLines(deps, summary, colorize) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

// resolveDependencyReport prefers the running daemon's view so the output
// reflects the environment the workers actually execute in, and probes
// locally when the daemon is offline.
func resolveDependencyReport(cmd *cobra.Command, ctx *commandContext) ([]ipc.DependencyStatus, api.DependencySummary, error) {
	if client, err := ipc.Dial(ctx.socketPath()); err == nil {
		defer client.Close()
		resp, err := client.Status()
		if err != nil {
			return nil, api.DependencySummary{}, err
		}
		if len(resp.Dependencies) > 0 {
			return resp.Dependencies, daemonctl.BuildDependencySummary(resp.Dependencies), nil
		}
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, api.DependencySummary{}, err
	}
	deps := daemonctl.ResolveDependencies(cmd.Context(), cfg)
	return deps, daemonctl.BuildDependencySummary(deps), nil
}
