// Package daemon coordinates the long-running Darkroom process.
//
// It wires configuration, the catalog store, the intake service, and the
// pipeline manager into a single lifecycle with flock-based locking to
// prevent multiple instances. Every operator operation the control socket
// exposes lives here: batch submission and lifecycle, record review
// (edit/reanalyze/finalize/retry), catalog maintenance, and status.
//
// Keep orchestration logic here: individual pipeline stages live in their
// respective packages while the daemon focuses on startup, shutdown, and
// operator-facing semantics.
package daemon
