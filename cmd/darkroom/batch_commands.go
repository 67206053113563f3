package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"darkroom/internal/api"
	"darkroom/internal/catalog"
	"darkroom/internal/intake"
	"darkroom/internal/ipc"
)

var batchListHeaders = []string{"ID", "Label", "State", "Created"}

func newBatchesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "batches",
		Short: "List submitted batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *catalog.Store) error {
				var batches []ipc.Batch
				if client != nil {
					resp, err := client.ListBatches()
					if err != nil {
						return err
					}
					batches = resp.Batches
				} else {
					listed, err := store.ListBatches(cmd.Context())
					if err != nil {
						return err
					}
					batches = api.FromBatches(listed)
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, ipc.ListBatchesResponse{Batches: batches})
				}
				if len(batches) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No batches")
					return nil
				}
				table := renderTable(batchListHeaders, buildBatchRows(batches))
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <batch>",
		Short: "Cancel a batch and skip its queued records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID := args[0]
			return ctx.withStore(func(client *ipc.Client, store *catalog.Store) error {
				var skipped int64
				if client != nil {
					resp, err := client.CancelBatch(batchID)
					if err != nil {
						return err
					}
					skipped = resp.Skipped
				} else {
					count, err := cancelBatchOffline(cmd, store, batchID)
					if err != nil {
						return err
					}
					skipped = count
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled batch %s (%d records skipped)\n", batchID, skipped)
				return nil
			})
		},
	}
}

func newDiscardCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <batch>",
		Short: "Cancel a batch and delete its records and staged files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID := args[0]
			return ctx.withStore(func(client *ipc.Client, store *catalog.Store) error {
				var removed int64
				if client != nil {
					resp, err := client.DiscardBatch(batchID)
					if err != nil {
						return err
					}
					removed = resp.Removed
				} else {
					if _, err := cancelBatchOffline(cmd, store, batchID); err != nil {
						return err
					}
					count, err := store.DeleteBatch(cmd.Context(), batchID)
					if err != nil {
						return err
					}
					cfg, err := ctx.ensureConfig()
					if err != nil {
						return err
					}
					if err := intake.RemoveBatchDir(cfg, batchID); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: remove staged files: %v\n", err)
					}
					removed = count
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Discarded batch %s (%d records removed)\n", batchID, removed)
				return nil
			})
		},
	}
}

func cancelBatchOffline(cmd *cobra.Command, store *catalog.Store, batchID string) (int64, error) {
	batch, err := store.GetBatch(cmd.Context(), batchID)
	if err != nil {
		return 0, err
	}
	if batch == nil {
		return 0, fmt.Errorf("batch %s does not exist", batchID)
	}
	if _, err := store.MarkBatchCancelled(cmd.Context(), batchID); err != nil {
		return 0, err
	}
	return store.SkipQueued(cmd.Context(), batchID)
}
