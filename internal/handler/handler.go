// Package handler is the HTTP layer between the router and the services.
//
// Handlers bind and validate the request through the validation package,
// call a service and write the result.
package handler
