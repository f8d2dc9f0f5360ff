package domain

import "errors"

// Error roots for the two failure classes the reasoner distinguishes.
// Callers match with errors.Is; everything else wraps one of these.
var (
	// ErrConfiguration covers malformed rule sets and runaway inference:
	// a session aborts and is never retried automatically.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidInput covers observations rejected at the session boundary
	// before any fact is asserted: unknown symptom or stage, bad severity,
	// certainty outside [0, 1].
	ErrInvalidInput = errors.New("invalid input")
)
