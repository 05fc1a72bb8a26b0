package engagement

import "errors"

var (
	// ErrValidation indicates the input was rejected before any mutation.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates the caller does not own the video.
	ErrForbidden = errors.New("forbidden")
)
