package rgethttp

import (
	"errors"
	"fmt"
)

var (
	ErrProbe               = errors.New("probe failed")
	ErrStalled             = errors.New("transfer stalled")
	ErrCancelled           = errors.New("cancelled")
	ErrRangeUnsupported    = errors.New("range requests are not supported")
	ErrRangeNotSatisfiable = errors.New("requested range not satisfiable")
	ErrSizeMismatch        = errors.New("size mismatch")
)

// StatusError is a non-success HTTP status seen by a probe or a worker.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// IOError wraps a local filesystem failure for the destination file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("error %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
