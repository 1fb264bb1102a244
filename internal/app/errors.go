package app

import "errors"

// ErrSnapshotNotFound and related errors describe validation and
// runtime failures.
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrInvalidSnapshot  = errors.New("invalid snapshot")
)
