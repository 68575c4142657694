package lifecycle

import "errors"

// Every rejected transition maps to exactly one of these sentinels so
// callers can tell "correct your input" from "refresh your view". None of
// them is retried inside the core; a meaningful retry always needs either
// corrected input or a fresh read first.
var (
	// ErrValidation marks malformed input (bad point, non-positive price,
	// out-of-range rating).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an absent Request or Offer reference.
	ErrNotFound = errors.New("not found")

	// ErrState marks an operation that is invalid for the current lifecycle
	// state, typically because the caller acted on a stale view.
	ErrState = errors.New("invalid state")

	// ErrConflict marks a uniqueness violation such as a duplicate offer or
	// duplicate review.
	ErrConflict = errors.New("conflict")

	// ErrAuthorization marks a caller/role mismatch.
	ErrAuthorization = errors.New("not allowed")
)
