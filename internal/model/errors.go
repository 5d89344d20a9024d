package model

import "errors"

var (
	// ErrNotFound marks the logical absence of a targeted row. It is never
	// used for infrastructure failures.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPeriod marks a malformed or non-positive period token.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrStorageUnavailable marks an infrastructure failure reaching the
	// persistence engine; callers may retry or map it to a 5xx response.
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrValidation = errors.New("validation error")
)
