package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist: a destination, a journal, or a node id that is not
// in the journal tree.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing required field, end date before start date).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInvalidStructure marks a stored journal document whose shape could not be
// decoded (unknown node type, malformed JSON). Repositories repair or reseed
// such documents instead of failing the request.
var ErrInvalidStructure = errors.New("invalid journal structure")

// ErrStorage wraps failures of the underlying key-value store.
// Journal persistence is best effort: services log it and keep the in-memory result.
var ErrStorage = errors.New("storage failure")
