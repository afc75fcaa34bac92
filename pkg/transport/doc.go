// Package transport provides the HTTP cross-cutting middleware that wraps
// every usergate route, and helpers for writing gate error envelopes.
//
// # Middleware
//
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), structured access logging via log/slog, and the
// X-Powered-By response header. Middleware compose with [Chain]; the first
// middleware in the chain is the outermost wrapper.
//
// # Errors
//
// [WriteError] renders an [api.GateError] as the JSON error envelope with
// the status code derived by [StatusFromError], adding Retry-After when the
// error carries one.
package transport
