package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"darkroom/internal/api"
	"darkroom/internal/catalog"
	"darkroom/internal/intake"
	"darkroom/internal/ipc"
	"darkroom/internal/logging"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var batchID string
	var label string
	var hint string

	cmd := &cobra.Command{
		Use:   "submit <file>...",
		Short: "Submit images for analysis and delivery",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := make([]string, 0, len(args))
			for _, arg := range args {
				absPath, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve path %q: %w", arg, err)
				}
				sources = append(sources, absPath)
			}

			var hints map[string]string
			if trimmed := strings.TrimSpace(hint); trimmed != "" {
				hints = make(map[string]string, len(sources))
				for _, source := range sources {
					hints[source] = trimmed
				}
			}

			return ctx.withStore(func(client *ipc.Client, store *catalog.Store) error {
				var batch ipc.Batch
				var records []ipc.Record

				if client != nil {
					resp, err := client.Submit(ipc.SubmitRequest{
						BatchID: batchID,
						Label:   label,
						Sources: sources,
						Hints:   hints,
					})
					if err != nil {
						return err
					}
					batch = resp.Batch
					records = resp.Records
				} else {
					cfg, err := ctx.ensureConfig()
					if err != nil {
						return err
					}
					service := intake.NewService(cfg, store, logging.NewNop())
					created, items, err := service.Submit(cmd.Context(), intake.Request{
						BatchID: batchID,
						Label:   label,
						Sources: sources,
						Hints:   hints,
					})
					if err != nil {
						return err
					}
					batch = api.FromBatch(created)
					records = api.FromRecords(items)
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, ipc.SubmitResponse{Batch: batch, Records: records})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Submitted %d file(s) to batch %s\n", len(records), batch.ID)
				table := renderTable(recordListHeaders, buildRecordRows(records), 0)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&batchID, "batch", "", "Add files to an existing batch instead of creating one")
	cmd.Flags().StringVar(&label, "label", "", "Human-readable label for a new batch")
	cmd.Flags().StringVar(&hint, "hint", "", "Analysis hint applied to every submitted file")
	return cmd
}
