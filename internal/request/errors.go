package request

import (
	"errors"
	"fmt"
)

var (
	ErrRequestNotFound     = errors.New("blood request not found")
	ErrAlreadyResponded    = errors.New("donor has already responded to this request")
	ErrDonorNotMatched     = errors.New("donor is not among the matched donors for this request")
	ErrForbidden           = errors.New("forbidden - insufficient permissions")
	ErrInvalidResponse     = errors.New("response must be accept or decline")
	ErrMissingCancelReason = errors.New("cancellation reason is required")

	ErrInvalidBloodType    = errors.New("a valid blood type is required")
	ErrInvalidProductType  = errors.New("invalid blood product type")
	ErrInvalidUnits        = errors.New("unit count must be between 1 and 10")
	ErrInvalidUrgency      = errors.New("invalid urgency tier")
	ErrRequiredByNotFuture = errors.New("required-by date must be in the future")
	ErrMissingLocation     = errors.New("request location coordinates are required")
	ErrMissingRequester    = errors.New("requester name and phone are required")

	ErrInvalidStatus  = errors.New("invalid request status")
	ErrBackwardStatus = errors.New("status may not move backward")
)

// IllegalTransitionError reports a transition that is not legal from the
// record's current state, carrying that state so callers can react.
type IllegalTransitionError struct {
	Current   Status
	Attempted string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition %q from status %q", e.Attempted, e.Current)
}

func newIllegalTransition(current Status, attempted string) error {
	return &IllegalTransitionError{Current: current, Attempted: attempted}
}

// IsIllegalTransition reports whether err is an IllegalTransitionError.
func IsIllegalTransition(err error) bool {
	var ite *IllegalTransitionError
	return errors.As(err, &ite)
}
