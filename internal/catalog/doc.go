// Package catalog persists pipeline records in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, atomic stage claims, crash recovery, and the status transitions
// that mirror the public pipeline enum. Records capture staged image paths,
// generated metadata drafts, and structured failure detail so stages can
// coordinate without additional state. Batches group records submitted
// together and carry the cancellation stamp the pipeline consults between
// stages.
//
// The database is treated as transient storage for in-flight work rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for lifecycle semantics;
// when you add new statuses or fields, update schema.sql and bump
// schemaVersion.
package catalog
