package staging

import (
	"errors"

	"carbooking/internal/domain"
)

var (
	// ErrKeyNotFound is what KV backends return for an absent key.
	ErrKeyNotFound = domain.ErrNotFound

	ErrNoClient  = errors.New("client id is required")
	ErrNoSession = errors.New("session id is required")
)
