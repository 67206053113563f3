// Package notifications pushes pipeline milestones to the operator.
//
// The ntfy-backed implementation posts to the topic named in config.toml;
// with no topic configured (or notifications disabled) the service degrades
// to a no-op, so neither the pipeline manager nor the daemon ever branches on
// notification settings. Event types are enumerated here and muted
// per-category inside Publish, which keeps message wording and muting rules
// in one place.
//
// Alternative transports only need to satisfy the Service interface.
package notifications
