package domain

import "errors"

// ErrNotFound is returned by lookups and key-value backends when nothing is
// stored under the requested identifier.
var ErrNotFound = errors.New("not found")
