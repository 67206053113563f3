package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"darkroom/internal/api"
	"darkroom/internal/catalog"
	"darkroom/internal/ipc"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the record queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCompletedCommand(ctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(ctx))
	queueCmd.AddCommand(newQueueReclaimCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *catalog.Store) error {
				var records []ipc.Record
				if client != nil {
					resp, err := client.ListRecords(listStatuses)
					if err != nil {
						return err
					}
					records = resp.Records
				} else {
					var statuses []catalog.Status
					for _, raw := range listStatuses {
						if parsed, ok := catalog.ParseStatus(raw); ok {
							statuses = append(statuses, parsed)
						}
					}
					listed, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					records = api.FromRecords(listed)
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, ipc.ListRecordsResponse{Records: records})
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(recordListHeaders, buildQueueListRows(records), 0)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by record status (repeatable)")
	return cmd
}

func newQueueClearCompletedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Remove completed records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *catalog.Store) error {
				var removed int64
				var err error
				if client != nil {
					resp, respErr := client.ClearCompleted()
					if respErr != nil {
						return respErr
					}
					removed = resp.Removed
				} else {
					removed, err = store.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed records\n", removed)
				return nil
			})
		},
	}
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *catalog.Store) error {
				var removed int64
				var err error
				if client != nil {
					resp, respErr := client.ClearFailed()
					if respErr != nil {
						return respErr
					}
					removed = resp.Removed
				} else {
					removed, err = store.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed records\n", removed)
				return nil
			})
		},
	}
}

func newQueueReclaimCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reclaim",
		Short: "Return records stranded in processing states to their queued state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *catalog.Store) error {
				var updated int64
				var err error
				if client != nil {
					resp, respErr := client.ReclaimStale()
					if respErr != nil {
						return respErr
					}
					updated = resp.Updated
				} else {
					updated, err = store.ResetStuckProcessing(cmd.Context())
					if err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reclaimed %d records\n", updated)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check catalog database health (schema, integrity, counts)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *catalog.Store) error {
				var health ipc.StoreHealthResponse
				if client != nil {
					resp, err := client.StoreHealth()
					if err != nil {
						return err
					}
					health = *resp
				} else {
					summary, err := store.Health(cmd.Context())
					if err != nil {
						return err
					}
					database, err := store.CheckHealth(cmd.Context())
					if err != nil && database.Error == "" {
						return err
					}
					health = storeHealthFromCatalog(summary, database)
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, health)
				}
				printStoreHealth(cmd, health)
				return nil
			})
		},
	}
}

func storeHealthFromCatalog(summary catalog.HealthSummary, database catalog.DatabaseHealth) ipc.StoreHealthResponse {
	return ipc.StoreHealthResponse{
		Counts: ipc.CatalogCounts{
			Total:       summary.Total,
			Pending:     summary.Pending,
			Processing:  summary.Processing,
			ReviewReady: summary.ReviewReady,
			Failed:      summary.Failed,
			Completed:   summary.Completed,
			Skipped:     summary.Skipped,
		},
		Database: ipc.DatabaseHealth{
			DBPath:           database.DBPath,
			DatabaseExists:   database.DatabaseExists,
			DatabaseReadable: database.DatabaseReadable,
			SchemaVersion:    database.SchemaVersion,
			TableExists:      database.TableExists,
			ColumnsPresent:   append([]string(nil), database.ColumnsPresent...),
			MissingColumns:   append([]string(nil), database.MissingColumns...),
			IntegrityCheck:   database.IntegrityCheck,
			TotalRecords:     database.TotalRecords,
			Error:            database.Error,
		},
	}
}

func printStoreHealth(cmd *cobra.Command, health ipc.StoreHealthResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total: %d\n", health.Counts.Total)
	fmt.Fprintf(out, "Pending: %d\n", health.Counts.Pending)
	fmt.Fprintf(out, "Processing: %d\n", health.Counts.Processing)
	fmt.Fprintf(out, "Review ready: %d\n", health.Counts.ReviewReady)
	fmt.Fprintf(out, "Failed: %d\n", health.Counts.Failed)
	fmt.Fprintf(out, "Completed: %d\n", health.Counts.Completed)
	fmt.Fprintf(out, "Skipped: %d\n", health.Counts.Skipped)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Database path: %s\n", health.Database.DBPath)
	fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.Database.DatabaseExists))
	fmt.Fprintf(out, "Readable: %s\n", yesNo(health.Database.DatabaseReadable))
	fmt.Fprintf(out, "Schema version: %s\n", health.Database.SchemaVersion)
	fmt.Fprintf(out, "records table present: %s\n", yesNo(health.Database.TableExists))
	if len(health.Database.ColumnsPresent) > 0 {
		cols := append([]string(nil), health.Database.ColumnsPresent...)
		sort.Strings(cols)
		fmt.Fprintf(out, "Columns: %s\n", strings.Join(cols, ", "))
	}
	if len(health.Database.MissingColumns) > 0 {
		missing := append([]string(nil), health.Database.MissingColumns...)
		sort.Strings(missing)
		fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
	} else {
		fmt.Fprintln(out, "Missing columns: none")
	}
	fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.Database.IntegrityCheck))
	fmt.Fprintf(out, "Total records: %d\n", health.Database.TotalRecords)
	if health.Database.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", health.Database.Error)
	}
}
