package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"darkroom/internal/api"
	"darkroom/internal/catalog"
	"darkroom/internal/daemonctl"
	"darkroom/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [batch]",
		Short: "Show system status, or a single batch when given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runBatchStatus(cmd, ctx, args[0])
			}
			return runSystemStatus(cmd, ctx)
		},
	}
}

func runSystemStatus(cmd *cobra.Command, ctx *commandContext) error {
	cfg := ctx.configValue()
	statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
	if err != nil {
		return err
	}

	if ctx.JSONMode() {
		return writeJSON(cmd, statusResp)
	}

	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("System Status", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, line := range statusResp.SystemChecks {
		fmt.Fprintln(stdout, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, line := range dependencyLines(statusResp.Dependencies, statusResp.DependencySummary, colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Workspace", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, line := range statusResp.WorkspaceChecks {
		fmt.Fprintln(stdout, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
	}

	fmt.Fprintln(stdout)
	for _, line := range renderSectionHeader("Queue Status", colorize) {
		fmt.Fprintln(stdout, line)
	}

	rows := buildQueueStatusRows(statusResp.QueueStats)
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "Queue is empty")
		return nil
	}

	table := renderTable([]string{"Status", "Count"}, rows, 1)
	fmt.Fprintln(stdout, table)
	return nil
}

func runBatchStatus(cmd *cobra.Command, ctx *commandContext, batchID string) error {
	return ctx.withStore(func(client *ipc.Client, store *catalog.Store) error {
		var snapshot ipc.BatchStatusResponse
		if client != nil {
			resp, err := client.BatchStatus(batchID)
			if err != nil {
				return err
			}
			snapshot = *resp
		} else {
			batch, err := store.GetBatch(cmd.Context(), batchID)
			if err != nil {
				return err
			}
			if batch == nil {
				return fmt.Errorf("batch %s does not exist", batchID)
			}
			counts, err := store.BatchStats(cmd.Context(), batchID)
			if err != nil {
				return err
			}
			records, err := store.ListByBatch(cmd.Context(), batchID)
			if err != nil {
				return err
			}
			snapshot = ipc.BatchStatusResponse{
				Batch:   api.FromBatch(batch),
				Counts:  api.MergeCatalogStats(counts),
				Records: api.FromRecords(records),
			}
		}

		if ctx.JSONMode() {
			return writeJSON(cmd, snapshot)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Batch: %s\n", snapshot.Batch.ID)
		if snapshot.Batch.Label != "" {
			fmt.Fprintf(out, "Label: %s\n", snapshot.Batch.Label)
		}
		state := "active"
		if snapshot.Batch.CancelledAt != "" {
			state = fmt.Sprintf("cancelled %s", formatDisplayTime(snapshot.Batch.CancelledAt))
		}
		fmt.Fprintf(out, "State: %s\n", state)
		fmt.Fprintf(out, "Created: %s\n", formatDisplayTime(snapshot.Batch.CreatedAt))
		fmt.Fprintln(out)

		countRows := buildQueueStatusRows(snapshot.Counts)
		if len(countRows) > 0 {
			table := renderTable([]string{"Status", "Count"}, countRows, 1)
			fmt.Fprintln(out, table)
		}

		if len(snapshot.Records) == 0 {
			fmt.Fprintln(out, "Batch has no records")
			return nil
		}
		table := renderTable(recordListHeaders, buildRecordRows(snapshot.Records), 0)
		fmt.Fprintln(out, table)
		return nil
	})
}
