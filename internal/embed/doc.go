// Package embed runs the metadata write stage for finalized records.
//
// It maps the reviewed fields onto the exiftool tag set and drives the
// copy-then-replace write so the staged file is only ever observed untagged or
// fully tagged. Embed failures are always permanent; an interrupted embed is
// surfaced for operator review rather than retried blindly.
package embed
