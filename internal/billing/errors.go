package billing

import "errors"

var (
	// ErrValidation marks user-correctable input errors. Callers surface
	// these verbatim.
	ErrValidation = errors.New("validation failed")

	// ErrNotPending is returned when settling a payment that is not in
	// pending status. Payments settle exactly once.
	ErrNotPending = errors.New("payment is not pending")

	// ErrPermission is returned when the actor's role does not allow the
	// operation.
	ErrPermission = errors.New("permission denied")
)
