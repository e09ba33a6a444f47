package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
	ErrRequestExpired    = errors.New("request window expired")
	ErrAlreadySettled    = errors.New("booking already settled")
	ErrAlreadyRefunded   = errors.New("booking already refunded")
	ErrNotYetSettled     = errors.New("booking not yet settled")
	ErrSettlementFailed  = errors.New("settlement computation failed")
	ErrVersionConflict   = errors.New("booking was modified concurrently")
	ErrBookingBusy       = errors.New("booking is locked by another request")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrInvalidBooking    = errors.New("invalid booking")
	ErrDuplicateBooking  = errors.New("booking id or number already taken")
)

// TransitionError reports a rejected action together with the state it was evaluated against.
type TransitionError struct {
	Status BookingStatus
	Action Action
	Err    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: action %q in status %s", e.Err, e.Action, e.Status)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

func transitionErr(status BookingStatus, action Action, err error) error {
	return &TransitionError{Status: status, Action: action, Err: err}
}
