package calls

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrTransitionConflict = errors.New("analysis status transition not allowed")
	ErrInvalidInput       = errors.New("invalid input")
)
