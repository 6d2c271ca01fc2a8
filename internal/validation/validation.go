// Package validation binds and validates request payloads.
//
// Request types carry validator struct tags and implement Validatable;
// failures are returned as a 400 errs.HTTPError with one FieldError per
// offending field.
package validation
