package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a uniqueness conflict on insert. For the
	// webhook ledger this is the dedup signal, not a failure.
	ErrAlreadyExists = errors.New("already exists")

	// ErrReconciliation indicates the computed order total does not match
	// the amount the gateway actually holds. Always fatal, never
	// auto-corrected.
	ErrReconciliation = errors.New("total does not match held amount")

	// ErrCaptureBlocked indicates a capture was attempted before both the
	// invoice and the dispatch order exist.
	ErrCaptureBlocked = errors.New("capture blocked: fulfillment incomplete")
)
