// Package agency uploads finished images to a stock agency FTP endpoint.
//
// The client keeps a small pool of logged-in sessions sized to the delivery
// worker count. Checkout probes the pooled session with NoOp and quietly
// replaces ones the server has dropped; a failed upload always discards its
// session instead of returning it. The remote directory is taken as given and
// never created; agency accounts come provisioned with their upload folder.
//
// # Failure Classification
//
// Errors are returned as *Error with a Kind the pipeline uses to pick
// between retrying and parking the record:
//
//   - auth_failed: 530 login rejections.
//   - rejected: 550/552/553 and other permanent replies (permissions, quota,
//     duplicate or invalid name).
//   - timeout: dial or transfer deadlines.
//   - connection_lost: 421/425/426, EOF, resets, and other transport failures.
//
// Only timeout and connection_lost are retryable; a retry dials a fresh
// session when the pool cannot supply a live one.
package agency
