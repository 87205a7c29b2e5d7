// Package handlers defines the HTTP-layer error codes returned in the
// ErrorResponse envelope. Clients branch on the code; the message is for
// humans.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"
	ErrCodeUnavailable      = "unavailable"

	// Domain-specific:
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeInvalidLocation = "invalid_location"
	ErrCodeListFailed      = "list_failed"
	ErrCodeWriteFailed     = "write_failed"
)
