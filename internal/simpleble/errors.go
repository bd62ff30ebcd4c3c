package simpleble

import (
	"errors"
	"fmt"
)

var (
	// ErrCallFailed is wrapped by every StatusError.
	ErrCallFailed = errors.New("simpleble: native call failed")
	// ErrReleased is returned when a handle is used after Release.
	ErrReleased = errors.New("simpleble: handle already released")
	// ErrInvalidHandle is returned when the library hands out a null handle.
	ErrInvalidHandle = errors.New("simpleble: invalid handle")
	// ErrLayout is returned when a fixed-layout struct fails its sanity checks.
	ErrLayout = errors.New("simpleble: struct layout mismatch")
	// ErrLibraryNotFound is returned when the shared library cannot be loaded.
	ErrLibraryNotFound = errors.New("simpleble: library not found")
	// ErrSymbolMissing is returned when the loaded library lacks an entry point.
	ErrSymbolMissing = errors.New("simpleble: symbol missing")
	// ErrUnsupportedPlatform is returned by Open on platforms without a loader.
	ErrUnsupportedPlatform = errors.New("simpleble: platform not supported")
)

// StatusError reports a non-zero status returned by a native entry point.
type StatusError struct {
	Op     string
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("simpleble: %s failed (status %d)", e.Op, e.Status)
}

func (e *StatusError) Unwrap() error {
	return ErrCallFailed
}

func check(op string, st Status) error {
	if st == StatusSuccess {
		return nil
	}
	return &StatusError{Op: op, Status: st}
}
