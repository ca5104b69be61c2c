package freight

import "errors"

var (
	// ErrFormat reports a pallet size that does not split into LxWxH.
	ErrFormat = errors.New("invalid format, use 'LxWxH' in cm")
	// ErrParse reports a non-numeric or out-of-range numeric input.
	ErrParse = errors.New("invalid number")
	// ErrMissingDistanceInput reports that neither a place pair nor manual kilometers were given.
	ErrMissingDistanceInput = errors.New("missing distance input: enter start and destination or kilometers")
)
