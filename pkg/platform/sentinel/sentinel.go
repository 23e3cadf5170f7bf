package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the backend facade, and
// the chain facade return these (optionally wrapped) so callers can translate
// them into domain errors.
//
// These represent factual states about resources, not validation failures:
//   - ErrNotFound: entity does not exist in store
//   - ErrNoRows: a single-row fetch matched zero (or multiple) rows; a valid
//     negative result, never a fault
//   - ErrConflict: a uniqueness or state conflict
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrNotInitialized: a facade was used before its provider/signer was wired
//   - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound       = errors.New("not found")
	ErrNoRows         = errors.New("no rows returned")
	ErrConflict       = errors.New("conflict")
	ErrInvalidState   = errors.New("invalid state")
	ErrNotInitialized = errors.New("not initialized")
	ErrUnavailable    = errors.New("unavailable")
)
