package booking

import "errors"

var (
	ErrSessionNotFound     = errors.New("booking session not found")
	ErrNotAtConfirmation   = errors.New("reservation can only be committed from the confirmation step")
	ErrAuthRequired        = errors.New("client must be signed in")
	ErrInvalidSessionToken = errors.New("invalid session token")
)
