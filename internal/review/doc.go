// Package review holds the metadata acceptance rules applied between analysis
// and finalize.
//
// Two layers: normalization always runs (whitespace trimming, case-folded
// keyword deduplication in first-seen order, keyword cap, canonical category
// mapping with an Uncategorized fallback), while Policy decides which fields
// operators must fill in before a record may be finalized. Operator edits and
// finalize both go through Apply so nothing reaches the embedder that the
// agency would bounce.
package review
