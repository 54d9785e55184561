package storage

import (
	dErrors "pitchside/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across in-memory and
	// Postgres implementations. It is always classified as fatal by the retry
	// wrapper.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")

	// ErrConflict reports unique-constraint style violations, e.g. duplicate
	// email on registration. Never retried.
	ErrConflict = dErrors.New(dErrors.CodeConflict, "record already exists")
)
