package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateEmail       = errors.New("email already exists")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnresolvedExpiration = errors.New("expiration date could not be resolved")
)
