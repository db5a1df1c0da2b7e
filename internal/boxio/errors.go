package boxio

import (
	"errors"
	"fmt"
)

// ErrStorageIO marks every backing-store failure.
var ErrStorageIO = errors.New("backing store I/O failed")

var errChecksum = errors.New("block checksum mismatch")

// StorageError describes a failed backing-store operation on an event range.
type StorageError struct {
	Op     string
	Offset int64
	Count  int64
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %d events at %d: %v", e.Op, e.Count, e.Offset, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorageIO, e.Err} }

var errClosed = errors.New("disk buffer is closed")
