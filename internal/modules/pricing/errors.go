package pricing

import "errors"

// ErrInvalidRange is returned when a reservation timestamp cannot be parsed.
var ErrInvalidRange = errors.New("invalid date range")
