package inventory

import "errors"

// Callers match these with errors.Is; the engine wraps them with detail.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrNotFound        = errors.New("not found")
)
