package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"darkroom/internal/ipc"
)

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

var recordListHeaders = []string{"ID", "File", "Status", "Title", "Updated"}

// buildRecordRows renders records in the given order, one row per record.
func buildRecordRows(records []ipc.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		title := ""
		if record.Fields != nil {
			title = truncateText(record.Fields.Title, 40)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", record.ID),
			recordFileName(record),
			formatStatusLabel(record.Status),
			title,
			formatDisplayTime(record.UpdatedAt),
		})
	}
	return rows
}

// buildQueueListRows renders records newest first for queue listings.
func buildQueueListRows(records []ipc.Record) [][]string {
	if len(records) == 0 {
		return nil
	}
	sorted := make([]ipc.Record, len(records))
	copy(sorted, records)

	sort.Slice(sorted, func(i, j int) bool {
		ti := parseDisplayTime(sorted[i].CreatedAt)
		tj := parseDisplayTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})

	return buildRecordRows(sorted)
}

func buildBatchRows(batches []ipc.Batch) [][]string {
	rows := make([][]string, 0, len(batches))
	for _, batch := range batches {
		state := "active"
		if batch.CancelledAt != "" {
			state = "cancelled"
		}
		rows = append(rows, []string{
			batch.ID,
			batch.Label,
			state,
			formatDisplayTime(batch.CreatedAt),
		})
	}
	return rows
}

func recordFileName(record ipc.Record) string {
	name := strings.TrimSpace(record.OriginalName)
	if name != "" {
		return name
	}
	source := strings.TrimSpace(record.SourcePath)
	if source != "" {
		return filepath.Base(source)
	}
	return "Unknown"
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func parseDisplayTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func truncateText(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
