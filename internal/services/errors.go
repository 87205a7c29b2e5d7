// Package services defines the use-cases behind the ops and intake HTTP API:
// reading search progress, accepting donation-request writes, recording
// acceptances, and registering donor locations.
//
// This file centralizes the service-level error values. Translation into
// HTTP status codes is performed by the handler layer.
package services

import "errors"

var (
	// ErrSearchNotFound indicates that no donor search exists for the key.
	ErrSearchNotFound = errors.New("search not found")

	// ErrRequestNotFound indicates that the donation request does not exist.
	ErrRequestNotFound = errors.New("donation request not found")

	// ErrInvalidRequest is returned when a donation request write fails
	// validation (missing identity, unknown blood group, bad geohash, ...).
	ErrInvalidRequest = errors.New("invalid donation request")

	// ErrAlreadyAccepted is returned when a donor accepts the same request twice.
	ErrAlreadyAccepted = errors.New("donor already accepted this request")

	// ErrInvalidLocation is returned when a donor location fails validation.
	ErrInvalidLocation = errors.New("invalid donor location")
)
