package models

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidID     = errors.New("invalid id")
	ErrForbidden     = errors.New("forbidden")
	ErrNotEntitled   = errors.New("article limit reached, premium required")
	ErrInvalidPrice  = errors.New("price must be positive")
)
