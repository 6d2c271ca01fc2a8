// Package middleware holds the echo middleware shared by every route:
// request ids, request-scoped logging, New Relic tracing, Prometheus
// metrics, bearer-token authentication and rate limiting.
package middleware
