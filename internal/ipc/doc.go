// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and conversions
// between catalog models and lightweight wire representations. The server
// embeds the daemon; the client keeps a short dial timeout so CLI commands
// fail fast when the daemon is offline.
//
// Typed daemon errors do not survive the RPC boundary. Clients receive the
// error string, so operator-facing messages carry the record status that
// caused the rejection.
//
// Reuse these types when adding new RPC endpoints to keep the protocol stable
// and compatible with existing command implementations.
package ipc
