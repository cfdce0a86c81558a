// Package apperr holds sentinel errors shared by the service and its adapters.
package apperr

import "errors"

var (
	// ErrNotFound is returned when an entity type or id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPayload is returned when a payload is not a JSON object.
	ErrInvalidPayload = errors.New("invalid payload")
)
