// Package api defines wire-format types and converters shared by the IPC
// server and the CLI client. It translates catalog and pipeline models into
// transport-friendly DTOs so neither side couples to internal types.
//
// # Key Types
//
// Record: transport representation of a catalog record with generated fields
// and failure detail.
//
// BatchSnapshot: a batch with per-status counts and full record detail,
// computed from a single catalog read.
//
// PipelineStatus: running state, queue stats, stage health, and last record.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (catalog.Status, failure
// kinds) are exposed as lowercase strings. Timestamps use RFC3339 with
// milliseconds; zero times are omitted.
package api
