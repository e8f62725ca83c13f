package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// ErrNotFound indicates no record exists at the requested key.
	ErrNotFound = errors.New("mining task not found")

	// ErrPersistence indicates the store rejected a write. The in-memory
	// record has been rolled back to its pre-mutation values.
	ErrPersistence = errors.New("persistence failure")

	// ErrNotAuthenticated indicates an authorization query was issued
	// before authentication. This is a programming fault, not user input.
	ErrNotAuthenticated = errors.New("authentication must happen before authorization")

	// ErrNotOwnable indicates an ownership check against something that
	// has no owner.
	ErrNotOwnable = errors.New("target is not ownable")
)
