// Package pipeline advances catalog records through the configured
// processing stages.
//
// The Manager runs two independent lanes: analysis (pending records move
// through vision analysis into review) and delivery (finalized records move
// through metadata embedding and agency transfer). Each lane runs a small
// pool of workers that claim records with conditional status updates, so a
// record is never processed by two workers at once and the lanes never
// contend for the same work.
//
// The manager owns retry policy. Transient stage failures are retried in
// place with capped exponential backoff while the worker keeps its claim;
// permanent failures and exhausted retries park the record in the failed
// state with a structured failure the operator can inspect and retry.
// Embed failures are never retried automatically because a partial header
// write needs eyes on the staged file first.
//
// Add new lifecycle stages by extending StageSet, updating the catalog
// status enums, and teaching the manager how to transition records; this
// package is the authoritative home for that coordination logic.
package pipeline
