package service

import "errors"

// Error taxonomy for the AAP engine. Handlers map these to HTTP statuses
// with errors.Is; none are ever collapsed into a generic failure because
// callers behave differently per kind (retry vs correct-and-resubmit).
var (
	// Missing/invalid input. Caller corrects and resubmits, no state change.
	ErrValidation = errors.New("validation failed")

	// No AAP/retailer matches the given identifier.
	ErrNotFound = errors.New("record not found")

	// Agent attempted to link themselves as the retailer.
	ErrSelfDealing = errors.New("agent cannot purchase on their own behalf")

	// Reservation guard failed; the AAP stays in draft, nothing is linked.
	ErrInsufficientCredit = errors.New("insufficient credit")

	// Event is not valid for the AAP's current status; state untouched.
	ErrIllegalTransition = errors.New("illegal status transition")

	// Supplied pickup code does not match; the AAP remains delivered.
	ErrInvalidPickupCode = errors.New("invalid pickup code")

	// Lookup service or persistence unreachable. Retryable, never swallowed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
