package slabstore

import "errors"

var (
	ErrNotFound     = errors.New("object not found")
	ErrNotGroup     = errors.New("object is not a group")
	ErrNotDataset   = errors.New("object is not a dataset")
	ErrExists       = errors.New("object already exists")
	ErrInvalidPath  = errors.New("invalid path")
	ErrOutOfRange   = errors.New("slab outside dataset bounds")
	ErrShape        = errors.New("data does not match dataset shape")
	ErrTypeMismatch = errors.New("attribute has a different type")
	ErrClosed       = errors.New("file is closed")
	ErrReadOnly     = errors.New("file is open read-only")

	ErrSchemaVersion = errors.New("unsupported schema version")
)
