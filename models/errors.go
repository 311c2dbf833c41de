package models

import "errors"

// Error taxonomy shared by the store, the services and the HTTP layer.
// Callers wrap these with context and match them with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidID          = errors.New("invalid id")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUpstream           = errors.New("upstream request failed")
	ErrMissingLocation    = errors.New("upstream result has no usable location")
)
