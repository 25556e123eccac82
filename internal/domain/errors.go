package domain

import (
	"errors"
	"fmt"
)

// ErrCalibrationNotFound signals that no calibration row exists for a device
// id. It is terminal for the request and never retried by the pipeline.
var ErrCalibrationNotFound = errors.New("calibration not found")

// ValidationError reports a malformed or missing required field in an
// inbound payload. Field names use the wire spelling.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// StorageError wraps a warehouse failure. The insert is all-or-nothing, so a
// StorageError means nothing was written for this request.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
