package fsstore

import "errors"

var (
	ErrInvalidPath       = errors.New("fsstore: invalid path")
	ErrPathExists        = errors.New("fsstore: path already exists")
	ErrAtomicWriteFailed = errors.New("fsstore: atomic write failed")
)
