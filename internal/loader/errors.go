package loader

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	// ErrMalformedUpdates reports an update document that does not match the expected shape.
	ErrMalformedUpdates = errors.New("malformed updates")
	// ErrReadUpdates reports an I/O failure reading an update file.
	ErrReadUpdates = errors.New("read updates failed")
	// ErrWriteModel reports an I/O or encoding failure writing the result.
	ErrWriteModel = errors.New("write model failed")
	// ErrUnknownFormat reports an unsupported output format name.
	ErrUnknownFormat = errors.New("unknown output format")
)

// EntryError locates a malformed entry in an update document.
type EntryError struct {
	Index  int
	Reason string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s: entry %d: %s", ErrMalformedUpdates, e.Index, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedUpdates.
func (e *EntryError) Unwrap() error { return ErrMalformedUpdates }
