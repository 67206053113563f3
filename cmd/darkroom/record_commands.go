package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"darkroom/internal/api"
	"darkroom/internal/catalog"
	"darkroom/internal/ipc"
)

func parseRecordID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", arg)
	}
	return id, nil
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <record>",
		Short: "Show a record's metadata and pipeline state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(client *ipc.Client, store *catalog.Store) error {
				var record ipc.Record
				if client != nil {
					resp, err := client.DescribeRecord(id)
					if err != nil {
						return err
					}
					record = resp.Record
				} else {
					stored, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if stored == nil {
						return fmt.Errorf("record %d not found", id)
					}
					record = api.FromRecord(stored)
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, ipc.DescribeRecordResponse{Record: record})
				}
				printRecordDetail(cmd, record)
				return nil
			})
		},
	}
}

func printRecordDetail(cmd *cobra.Command, record ipc.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Record: %d\n", record.ID)
	fmt.Fprintf(out, "Batch: %s\n", record.BatchID)
	fmt.Fprintf(out, "File: %s\n", recordFileName(record))
	fmt.Fprintf(out, "Source: %s\n", record.SourcePath)
	fmt.Fprintf(out, "Status: %s\n", formatStatusLabel(record.Status))
	if record.Hint != "" {
		fmt.Fprintf(out, "Hint: %s\n", record.Hint)
	}
	fmt.Fprintf(out, "Created: %s\n", formatDisplayTime(record.CreatedAt))
	fmt.Fprintf(out, "Updated: %s\n", formatDisplayTime(record.UpdatedAt))
	if record.FinalizedAt != "" {
		fmt.Fprintf(out, "Finalized: %s\n", formatDisplayTime(record.FinalizedAt))
	}
	if record.UploadedAt != "" {
		fmt.Fprintf(out, "Uploaded: %s\n", formatDisplayTime(record.UploadedAt))
	}
	if record.Fields != nil {
		fmt.Fprintf(out, "Title: %s\n", record.Fields.Title)
		fmt.Fprintf(out, "Description: %s\n", record.Fields.Description)
		fmt.Fprintf(out, "Keywords: %s\n", strings.Join(record.Fields.Keywords, ", "))
		if record.Fields.Category != "" {
			fmt.Fprintf(out, "Category: %s\n", record.Fields.Category)
		}
	}
	if record.Failure != nil {
		fmt.Fprintf(out, "Failure: [%s/%s] %s (retries: %d)\n",
			record.Failure.Stage,
			record.Failure.Kind,
			record.Failure.Message,
			record.Failure.RetryCount,
		)
	}
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var title string
	var description string
	var keywords []string
	var category string

	cmd := &cobra.Command{
		Use:   "edit <record>",
		Short: "Edit reviewed metadata before finalizing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("title") &&
				!cmd.Flags().Changed("description") &&
				!cmd.Flags().Changed("keywords") &&
				!cmd.Flags().Changed("category") {
				return fmt.Errorf("specify at least one of --title, --description, --keywords, or --category")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				current, err := client.DescribeRecord(id)
				if err != nil {
					return err
				}

				fields := ipc.MetadataFields{}
				if current.Record.Fields != nil {
					fields = *current.Record.Fields
				}
				if cmd.Flags().Changed("title") {
					fields.Title = title
				}
				if cmd.Flags().Changed("description") {
					fields.Description = description
				}
				if cmd.Flags().Changed("keywords") {
					fields.Keywords = keywords
				}
				if cmd.Flags().Changed("category") {
					fields.Category = category
				}

				resp, err := client.EditFields(ipc.EditFieldsRequest{ID: id, Fields: fields})
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated record %d\n", resp.Record.ID)
				printRecordDetail(cmd, resp.Record)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Replacement title")
	cmd.Flags().StringVar(&description, "description", "", "Replacement description")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "Replacement keyword list (comma separated)")
	cmd.Flags().StringVar(&category, "category", "", "Replacement agency category")
	return cmd
}

func newReanalyzeCommand(ctx *commandContext) *cobra.Command {
	var hint string

	cmd := &cobra.Command{
		Use:   "reanalyze <record>",
		Short: "Queue a reviewed record for a fresh analysis pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reanalyze(id, hint)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Record %d queued for analysis\n", resp.Record.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&hint, "hint", "", "Replacement analysis hint")
	return cmd
}

func newFinalizeCommand(ctx *commandContext) *cobra.Command {
	var batchID string

	cmd := &cobra.Command{
		Use:   "finalize [record]",
		Short: "Approve reviewed metadata for embedding and delivery",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useBatch := strings.TrimSpace(batchID) != ""
			if useBatch && len(args) > 0 {
				return fmt.Errorf("specify either a record id or --batch, not both")
			}
			if !useBatch && len(args) == 0 {
				return fmt.Errorf("record id or --batch is required")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				if useBatch {
					resp, err := client.FinalizeBatch(batchID)
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, resp)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Finalized %d record(s) in batch %s\n", resp.Finalized, batchID)
					return nil
				}

				id, err := parseRecordID(args[0])
				if err != nil {
					return err
				}
				resp, err := client.Finalize(id)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Record %d finalized\n", resp.Record.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&batchID, "batch", "", "Finalize every reviewable record in the batch")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <record>",
		Short: "Re-queue a failed record at the stage that failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(client *ipc.Client, store *catalog.Store) error {
				if client != nil {
					resp, err := client.Retry(id)
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, resp)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Record %d queued for retry\n", resp.Record.ID)
					return nil
				}

				record, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("record %d not found", id)
				}
				if record.Status != catalog.StatusFailed {
					return fmt.Errorf("record %d is not in failed state (status %s)", id, record.Status)
				}
				if _, err := store.RetryFailed(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Record %d queued for retry\n", id)
				return nil
			})
		},
	}
}
