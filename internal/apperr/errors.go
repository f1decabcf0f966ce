// Package apperr holds the sentinel errors shared by the service layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidTarget = errors.New("invalid target")
	ErrInvalidRange  = errors.New("invalid range")
	ErrInvalidParam  = errors.New("invalid parameter")
)
