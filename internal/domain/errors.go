package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrSeatsUnavailable = errors.New("selected seats are not available")
	ErrConflict         = errors.New("conflict")
	ErrInvalidInput     = errors.New("invalid input")
)
