package services

import "errors"

// Service errors. Domain and store errors (domain.Err*, security.Err*,
// session.Err*, validation.Err*) pass through wrapped.
var (
	// Dataset errors
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrInvalidSlot     = errors.New("invalid dataset slot")
	ErrSlotReadOnly    = errors.New("dataset slot is read-only")
	ErrDefaultRemoved  = errors.New("default dataset removed")

	// Auth errors
	ErrUnauthenticated  = errors.New("authentication required")
	ErrPermissionDenied = errors.New("permission denied")
	ErrPasswordMismatch = errors.New("passwords do not match")

	// General errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
