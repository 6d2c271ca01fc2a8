// Package errs defines the error shapes returned to API clients.
//
// HTTPError carries a machine-readable code, a message, the HTTP status and
// optional field-level validation errors, so every failure reaches the
// client with the same JSON structure.
package errs
