package models

import (
	"fmt"
)

// ValidationError represents a bad or missing request parameter
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// NoInputFilesError is returned when the data directory is missing or holds no eligible files
type NoInputFilesError struct {
	Dir        string
	DirMissing bool
}

func (e *NoInputFilesError) Error() string {
	if e.DirMissing {
		return fmt.Sprintf("data folder path does not exist: %s", e.Dir)
	}
	return fmt.Sprintf("no data files found in %s", e.Dir)
}

func (e *NoInputFilesError) IsTransient() bool {
	return false
}

// IOError wraps a failure to open or read a data file
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) IsTransient() bool {
	return false
}

// ParseError reports a malformed row or an unparsable field value.
// Row is the 0-based data row index (header excluded), or -1 when unknown.
type ParseError struct {
	Source string
	Row    int
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("invalid value for %q in %s: %v", e.Field, e.Source, e.Err)
	case e.Row >= 0:
		return fmt.Sprintf("malformed row %d in %s: %v", e.Row, e.Source, e.Err)
	default:
		return fmt.Sprintf("malformed input %s: %v", e.Source, e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) IsTransient() bool {
	return false
}

// StoreWriteError wraps a failed insert or index creation
type StoreWriteError struct {
	Op  string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write %s failed: %v", e.Op, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// IsTransient returns true; the caller may resubmit the whole operation
func (e *StoreWriteError) IsTransient() bool {
	return true
}

// StoreQueryError wraps a failed read
type StoreQueryError struct {
	Op  string
	Err error
}

func (e *StoreQueryError) Error() string {
	return fmt.Sprintf("store query %s failed: %v", e.Op, e.Err)
}

func (e *StoreQueryError) Unwrap() error {
	return e.Err
}

func (e *StoreQueryError) IsTransient() bool {
	return true
}

// MissingFieldError reports a stored record lacking a field required for evaluation
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record is missing field %q", e.Field)
}

func (e *MissingFieldError) IsTransient() bool {
	return false
}
