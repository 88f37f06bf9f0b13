package app

import "errors"

var (
	// ErrEmailRequired indicates a chat turn arrived without an account email.
	ErrEmailRequired = errors.New("email required")
	// ErrInputRequired indicates a chat turn arrived with empty user text.
	ErrInputRequired = errors.New("input required")
)
