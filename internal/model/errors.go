package model

import (
	"errors"
	"fmt"
)

// Error kinds shared by every stage of the pipeline. Use errors.Is to classify.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrSourceFormat  = errors.New("source format error")
	ErrExtraction    = errors.New("extraction error")
	ErrStore         = errors.New("store error")
	ErrExport        = errors.New("export error")
)

// PathError ties an error kind and its cause to the path that failed.
type PathError struct {
	Kind error
	Path string
	Err  error
}

// NewPathError builds a PathError.
func NewPathError(kind error, path string, err error) *PathError {
	return &PathError{Kind: kind, Path: path, Err: err}
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *PathError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Configurationf returns an ErrConfiguration with a formatted message.
func Configurationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
