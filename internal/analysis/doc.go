// Package analysis runs the vision stage for queued records.
//
// The handler reads the staged image, sends it to the configured vision
// endpoint together with any operator hint, and normalizes the returned
// metadata (keyword dedup, category canonicalization) before hanging it on
// the record for review. The handler performs no retries of its own; typed
// vision errors flow back to the pipeline, which owns retry scheduling and
// failure classification.
package analysis
