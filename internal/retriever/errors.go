package retriever

import (
	"errors"
	"fmt"
)

var (
	ErrNoFileReference     = errors.New("retriever: no file reference in event")
	ErrUnsupportedMimeType = errors.New("retriever: unsupported mime type")
)

// FetchError reports a failed metadata lookup or download. Status is the HTTP
// status of a non-200 download response and zero when the request itself
// failed (timeout, connection error, oversized body, api error).
type FetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: http %d: %v", e.Op, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: http %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": fetch failed"
	}
}

func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
