package topology

import "errors"

var (
	// ErrInvalidWeights is returned for protocol weights that are empty, negative,
	// not finite, or sum to zero.
	ErrInvalidWeights = errors.New("invalid protocol weights")

	// ErrEmptyZone is returned when either side of a connection has no devices.
	ErrEmptyZone = errors.New("connection zone is empty")

	// ErrInvalidFrequency is returned for a non-positive or non-finite frequency.
	ErrInvalidFrequency = errors.New("connection frequency must be positive")
)
