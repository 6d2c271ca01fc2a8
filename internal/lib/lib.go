// Package lib collects helpers that do not belong to a single layer:
// password hashing, background jobs on Redis/Asynq, the Resend email client
// and Prometheus metrics.
package lib
