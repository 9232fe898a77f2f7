package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound              = errors.New("entity not found")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrUnauthorized          = errors.New("panel rejected credentials")
	ErrUnsupportedTransition = errors.New("unsupported status transition")
	ErrAborted               = errors.New("operation aborted by operator")
)
