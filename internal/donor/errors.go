package donor

import "errors"

var (
	ErrDonorNotFound    = errors.New("donor not found")
	ErrMissingPhone     = errors.New("donor has no phone number on file")
	ErrMissingBloodType = errors.New("donor has no blood type on file")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
)
