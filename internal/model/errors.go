package model

import "errors"

var (
	// ErrNotFound is returned when a chat or project cannot be resolved.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when user input is rejected.
	ErrValidation = errors.New("validation failed")
)
