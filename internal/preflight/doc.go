// Package preflight provides readiness checks for the external services
// and filesystem paths that Darkroom depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup so a missing workspace directory or a
//     bad vision key surfaces immediately instead of failing the first record.
//   - The CLI "darkroom deps" and "darkroom daemon status" commands use
//     CheckSystemDeps and the individual check functions to display health.
package preflight
