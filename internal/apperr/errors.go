// Package apperr holds the sentinel errors shared across livepad layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidName   = errors.New("invalid file name")
	ErrInvalid       = errors.New("invalid input")
)
