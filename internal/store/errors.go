package store

import "errors"

// ErrNotFound is returned for lookups of jobs that were never enqueued.
var ErrNotFound = errors.New("store: resource not found")
