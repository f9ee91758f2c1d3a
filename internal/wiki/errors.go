package wiki

import "errors"

var (
	ErrNotFound       = errors.New("page not found")
	ErrTargetExists   = errors.New("target page already exists")
	ErrInvalidPattern = errors.New("invalid search pattern")
)
