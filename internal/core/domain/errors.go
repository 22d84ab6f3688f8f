package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Configuration Errors.

	// ErrInvalidDefinition indicates a broker or connector definition is
	// structurally or semantically invalid. Raised before any harvest begins.
	ErrInvalidDefinition = errors.New("invalid definition")

	// ErrUnknownType indicates no connector or processor is registered for a type.
	ErrUnknownType = errors.New("unknown type")

	// Lifecycle Errors.

	// ErrInvalidState indicates Begin or Abort was called in the wrong state.
	ErrInvalidState = errors.New("invalid state")

	// Harvest Errors.

	// ErrDataInput indicates the source could not be enumerated.
	// Fatal to the current run.
	ErrDataInput = errors.New("data input error")

	// ErrDataOutput indicates a record could not be published to one destination.
	// Scoped to that record and destination.
	ErrDataOutput = errors.New("data output error")

	// ErrBrokerClosed indicates the broker has been closed.
	ErrBrokerClosed = errors.New("broker closed")
)

// InvalidStateError reports a lifecycle call made in the wrong state.
type InvalidStateError struct {
	// Op is the rejected operation ("beginning" or "aborting").
	Op string
	// Status is the status observed when the call was rejected.
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("error %s the process: process is in %s state", e.Op, e.Status)
}

// Is reports whether target is ErrInvalidState.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// DataInputError wraps a failure to enumerate a source.
type DataInputError struct {
	// Source describes the input broker that failed.
	Source string
	// Err is the underlying cause.
	Err error
}

func (e *DataInputError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrDataInput, e.Source)
	}
	return fmt.Sprintf("%s: %s: %v", ErrDataInput, e.Source, e.Err)
}

func (e *DataInputError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDataInput.
func (e *DataInputError) Is(target error) bool {
	return target == ErrDataInput
}

// NewDataInputError wraps err as a DataInputError.
// An err that already is a DataInputError is returned unchanged.
func NewDataInputError(source string, err error) *DataInputError {
	var die *DataInputError
	if errors.As(err, &die) {
		return die
	}
	return &DataInputError{Source: source, Err: err}
}

// DataOutputError wraps a failure to publish one record to one destination.
type DataOutputError struct {
	// Destination describes the output broker that failed.
	Destination string
	// Reference is the record that was rejected.
	Reference DataReference
	// Err is the underlying cause.
	Err error
}

func (e *DataOutputError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s -> %s", ErrDataOutput, e.Reference.SourceURI(), e.Destination)
	}
	return fmt.Sprintf("%s: %s -> %s: %v", ErrDataOutput, e.Reference.SourceURI(), e.Destination, e.Err)
}

func (e *DataOutputError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDataOutput.
func (e *DataOutputError) Is(target error) bool {
	return target == ErrDataOutput
}

// NewDataOutputError wraps err as a DataOutputError for the given record.
// An err that already is a DataOutputError is returned unchanged.
func NewDataOutputError(destination string, ref DataReference, err error) *DataOutputError {
	var doe *DataOutputError
	if errors.As(err, &doe) {
		return doe
	}
	return &DataOutputError{Destination: destination, Reference: ref, Err: err}
}

// InvalidDefinitionf returns an error wrapping ErrInvalidDefinition.
func InvalidDefinitionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDefinition, fmt.Sprintf(format, args...))
}
