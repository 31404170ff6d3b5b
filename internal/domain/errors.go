package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. a fix with an out-of-range latitude, a stop time before the start).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrTrackClosed is returned when a way-point is appended to, or a stop is
// recorded for, a track that has already been finalized.
// Handlers should map this to HTTP 409 Conflict.
var ErrTrackClosed = errors.New("track closed")

// ErrOutOfOrder is returned by Track.Append when a way-point is older than the
// last way-point of the track. It wraps ErrValidation.
var ErrOutOfOrder = fmt.Errorf("%w: way-point precedes last way-point", ErrValidation)
