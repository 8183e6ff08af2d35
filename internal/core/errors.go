package core

import (
	"errors"
	"fmt"
)

// Error kinds. Callers test with errors.Is; every kind is recoverable and is
// mapped to a user-visible status by MapError.
var (
	ErrInputEmpty          = errors.New("no headers or rows detected")
	ErrMappingIncomplete   = errors.New("field mapping incomplete")
	ErrMappingUnproductive = errors.New("field mapping produced no rows")
	ErrValidationMissing   = errors.New("equipment id required")
	ErrStorageFailure      = errors.New("storage failure")

	ErrUnknownProfile    = errors.New("unknown profile")
	ErrCandidateNotFound = errors.New("import candidate not found")
	ErrNothingToSave     = errors.New("nothing to save")
	ErrUnknownHeader     = errors.New("column not found")
)

// MappingError reports a mapping that stopped the pipeline, and which
// mapping it was.
type MappingError struct {
	Source MappingSource
	Err    error // ErrMappingIncomplete or ErrMappingUnproductive
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s mapping: %v", e.Source, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// UserConfirmed reports whether the failing mapping came from the resolver.
func (e *MappingError) UserConfirmed() bool {
	return e.Source == SourceUser
}

// HeaderError reports a resolver selection naming a header the file lacks.
type HeaderError struct {
	Field  Field
	Header string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("field %s: %v: %q", e.Field, ErrUnknownHeader, e.Header)
}

func (e *HeaderError) Unwrap() error {
	return ErrUnknownHeader
}
