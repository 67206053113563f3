// Package vision provides a Gemini generateContent client for image metadata
// extraction.
//
// The client sends one image per call, inline as base64, together with a
// prompt requesting stock photography metadata as pure JSON. The response is
// decoded into Title, Description, Keywords, and Category, tolerating code
// fences and keywords supplied as either an array or a comma-separated
// string.
//
// # Failure Classification
//
// Errors are returned as *Error with a Kind the pipeline uses to pick
// between retrying and parking the record:
//
//   - rate_limited: HTTP 429; RetryAfter carries the server's requested delay.
//   - unreachable: HTTP 408/5xx, network failures, timeouts.
//   - unauthorized: HTTP 401/403, or 400 complaining about the API key.
//   - invalid_response: undecodable payloads, blocked prompts, or metadata
//     failing the structural minimum (title, description, at least one keyword).
//
// Only rate_limited and unreachable are retryable. The client itself never
// retries; each Analyze call is a single attempt and retry scheduling is the
// pipeline's job.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.Analyze: analyze one image, returning validated metadata.
// Client.HealthCheck: verify endpoint, model, and API key with a text-only call.
package vision
