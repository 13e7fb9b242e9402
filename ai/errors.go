package ai

import "errors"

var (
	// ErrEmptyInput is returned when blank text is submitted for embedding.
	ErrEmptyInput = errors.New("text cannot be empty")

	// ErrProvider wraps transport, quota, or auth failures from the
	// embedding provider. Callers isolate it to the failing batch rather
	// than aborting whole jobs.
	ErrProvider = errors.New("embedding provider failure")
)
