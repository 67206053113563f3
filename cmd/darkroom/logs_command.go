package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"darkroom/internal/ipc"
	"darkroom/internal/logging"
	"darkroom/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			initialLimit := lines
			if initialLimit < 0 {
				initialLimit = 0
			}
			initialOffset := int64(-1)
			if initialLimit == 0 {
				initialOffset = 0
			}

			client, err := ipc.Dial(ctx.socketPath())
			if err == nil {
				defer client.Close()
				return streamDaemonLogs(cmd, client, initialOffset, initialLimit, follow)
			}
			if !isDialFallback(err) {
				return wrapDialError(err, ctx.socketPath())
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return tailLogFile(cmd, logging.FilePath(cfg), initialOffset, initialLimit, follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}

// streamDaemonLogs pulls log lines over IPC so the view matches the file the
// running daemon writes, wherever its own config points.
func streamDaemonLogs(cmd *cobra.Command, client *ipc.Client, offset int64, limit int, follow bool) error {
	ctx := cmd.Context()
	printed := false
	for {
		resp, err := client.LogTail(ipc.LogTailRequest{
			Offset:     offset,
			Limit:      limit,
			Follow:     follow,
			WaitMillis: 1000,
		})
		if err != nil {
			return fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return errors.New("log tail response missing")
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = resp.Offset
		limit = 0
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// tailLogFile reads the configured log file directly when the daemon is not
// reachable.
func tailLogFile(cmd *cobra.Command, path string, offset int64, limit int, follow bool) error {
	if path == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
		return nil
	}

	ctx := cmd.Context()
	printed := false
	for {
		result, err := logs.Tail(ctx, path, logs.TailOptions{
			Offset: offset,
			Limit:  limit,
			Follow: follow,
			Wait:   time.Second,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("tail logs: %w", err)
		}
		for _, line := range result.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = result.Offset
		limit = 0
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
