package domain

import "errors"

// Core data errors. Callers wrap them with context and match with errors.Is.
var (
	// ErrInvalidColumnType is returned when a column has the wrong semantic type
	ErrInvalidColumnType = errors.New("invalid column type")

	// ErrInsufficientData is returned when too few numeric columns or rows exist
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnsupportedFormat is returned for export or upload formats outside the supported set
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrShapeMismatch is returned when cell-level diff data is read for tables of different shape
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrColumnNotFound is returned when a referenced column does not exist
	ErrColumnNotFound = errors.New("column not found")

	// ErrUnsupportedChart is returned for unknown chart kinds or kinds a renderer cannot draw
	ErrUnsupportedChart = errors.New("unsupported chart")

	// ErrInvalidTable is returned when table invariants are violated
	ErrInvalidTable = errors.New("invalid table")
)
