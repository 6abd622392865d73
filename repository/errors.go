package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict reports that the record changed state underneath a
	// conditional update.
	ErrConflict = errors.New("record was modified concurrently")
)
