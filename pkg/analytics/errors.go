package analytics

import "errors"

var (
	// ErrFlushInProgress is returned by Flush while another flush is running.
	ErrFlushInProgress = errors.New("analytics flush already in progress")
	// ErrNoStorage is returned when a Store is built without a storage.
	ErrNoStorage = errors.New("analytics store requires a storage")
	// ErrCorruptRecord marks a durable record that could not be decoded.
	ErrCorruptRecord = errors.New("corrupt analytics record")
)
