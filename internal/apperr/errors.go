// Package apperr defines sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrNoGraph         = errors.New("graph not built")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNoPath          = errors.New("no path")
)
