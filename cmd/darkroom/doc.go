// Package main hosts the darkroom CLI entrypoint and command graph.
//
// Each subcommand is a thin translation layer: it resolves configuration and
// the daemon socket, issues an IPC call (or falls back to opening the catalog
// directly for reads when the daemon is down), and renders the response as a
// table or JSON envelope. Policy-bearing mutations always go through the
// daemon so review validation and notifier configuration apply in one place.
//
// New behavior belongs in the internal packages; this package should only
// grow commands and flags that surface it.
package main
