package persistence

import "errors"

// Sentinel kinds for snapshot errors.
var (
	ErrNoSnapshot      = errors.New("snapshot not found")
	ErrCorruptSnapshot = errors.New("snapshot corrupt")
	ErrWriteSnapshot   = errors.New("snapshot write failed")
	ErrNotAttached     = errors.New("persister has no store attached")
	ErrUnreadSnapshot  = errors.New("snapshot on disk was never read; refusing to replace it")
)
