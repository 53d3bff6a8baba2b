package engine

import "errors"

var (
	// ErrAlreadyInProgress rejects a duplicate mutation on an id whose
	// previous mutation has not settled, rather than letting the two race.
	ErrAlreadyInProgress = errors.New("mutation already in progress")
	// ErrInvalidState rejects a mutation whose precondition does not hold,
	// e.g. deciding a request that is absent or no longer pending.
	ErrInvalidState = errors.New("invalid state for mutation")
)
