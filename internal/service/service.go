// Package service holds the business rules behind the HTTP handlers.
package service
