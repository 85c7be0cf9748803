package spool

import (
	"errors"
	"fmt"
)

var ErrIOFailure = errors.New("spool: i/o failure")

// SpoolError names the failing operation and the path involved.
type SpoolError struct {
	Op   string
	Path string
	Err  error
}

func (e *SpoolError) Error() string {
	return fmt.Sprintf("spool: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SpoolError) Unwrap() error { return e.Err }

func newSpoolError(op, path string, err error) *SpoolError {
	return &SpoolError{Op: op, Path: path, Err: err}
}
