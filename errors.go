package cowkit

import (
	"errors"
	"fmt"
)

// Common filesystem errors
var (
	ErrNotExist     = errors.New("file does not exist")
	ErrExist        = errors.New("file already exists")
	ErrPermission   = errors.New("permission denied")
	ErrNotDir       = errors.New("not a directory")
	ErrIsDir        = errors.New("is a directory")
	ErrInvalidName  = errors.New("invalid name")
	ErrNotSupported = errors.New("operation not supported")
	ErrNotAllowed   = errors.New("operation not allowed")
	ErrInvalidSize  = errors.New("invalid file size")
	ErrNoSpace      = errors.New("no space left on device")
)

// Operation errors. Layered filesystems wrap a backend failure with the
// sentinel of the operation the caller invoked, so both can be matched with
// errors.Is.
var (
	ErrUnableToRead          = errors.New("unable to read file")
	ErrUnableToWrite         = errors.New("unable to write file")
	ErrUnableToDelete        = errors.New("unable to delete")
	ErrUnableToMove          = errors.New("unable to move file")
	ErrUnableToCopy          = errors.New("unable to copy file")
	ErrUnableToSetVisibility = errors.New("unable to set visibility")
)

// PathError records an error and the operation and file path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// TransferError records an error from an operation involving a source and a
// destination path, such as copy or move.
type TransferError struct {
	Op          string
	Source      string
	Destination string
	Err         error
}

// Error implements the error interface
func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s -> %s: %v", e.Op, e.Source, e.Destination, e.Err)
}

// Unwrap returns the underlying error
func (e *TransferError) Unwrap() error {
	return e.Err
}

// WrapOpError joins an operation sentinel with its cause so that errors.Is
// matches either of them.
func WrapOpError(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// IsNotExist reports whether an error indicates that a file or directory
// does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsExist reports whether an error indicates that a file or directory
// already exists
func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}

// IsPermission reports whether an error indicates that permission is denied
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}
