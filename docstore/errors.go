package docstore

import "errors"

// Common errors returned by document stores.
var (
	// ErrNotFound is returned when a document id does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidQuery is returned for malformed query clauses.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidConfig is returned when a store is missing required identifiers.
	ErrInvalidConfig = errors.New("invalid document store configuration")
)
