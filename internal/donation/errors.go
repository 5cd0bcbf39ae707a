package donation

import (
	"errors"
	"fmt"
)

var (
	ErrDonationNotFound = errors.New("donation not found")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")

	ErrMissingDonor      = errors.New("donor ID is required")
	ErrRequestNotFound   = errors.New("linked blood request not found")
	ErrInvalidProduct    = errors.New("invalid blood product type")
	ErrInvalidUnits      = errors.New("unit count must be 1 or 2")
	ErrScheduleNotFuture = errors.New("scheduled date must be in the future")
	ErrInvalidTestResult = errors.New("test results must be negative, positive or pending")
	ErrMissingLocation   = errors.New("storage location is required")
	ErrExpiryNotFuture   = errors.New("expiry date must be in the future")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrMissingHospital   = errors.New("destination hospital name is required")
	ErrMissingReason     = errors.New("cancellation reason is required")
)

// IllegalTransitionError reports a pipeline transition that is not legal
// from the donation's current status.
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
