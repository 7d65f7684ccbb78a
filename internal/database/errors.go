package database

import "errors"

var (
	// ErrDatabaseNotFound is returned when opening a missing database
	// without CreateIfNotExists.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrRunNotFound is returned when no run matches an ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRunID is returned when an ID prefix matches several runs.
	ErrAmbiguousRunID = errors.New("run ID prefix matches more than one run")
)
