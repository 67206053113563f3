// Package logs reads the daemon log file with tail semantics.
//
// It backs `darkroom logs`: bounded-memory reads of the last N lines, resume
// offsets for incremental polling, and a follow mode that waits for new lines
// under a caller-supplied deadline. The daemon serves the same reads over IPC
// so the CLI sees the file the running daemon actually writes.
package logs
