package domain

import "errors"

var (
	ErrNotFound     = errors.New("task not found")
	ErrRootExcluded = errors.New("action not available on the root task")
	ErrInvalidID    = errors.New("invalid id")
)
