package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrLockNotAcquired indicates a critical-section lock was held elsewhere.
	ErrLockNotAcquired = errors.New("lock not acquired")
)
