package common

import "errors"

var (
	ErrModelUnavailable  = errors.New("model unavailable")
	ErrEmptyInput        = errors.New("empty input")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrProviderError     = errors.New("provider error")
)
