package scholarships

import "errors"

var (
	ErrNotFound     = errors.New("scholarship not found")
	ErrInvalidInput = errors.New("invalid input")
)
