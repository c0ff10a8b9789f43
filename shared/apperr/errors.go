package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation is returned for client-correctable input problems
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateIdentity is returned when a phone number or email is already taken
	ErrDuplicateIdentity = errors.New("duplicate identity")
	// ErrRoomFull is returned when the target room has no free bed for the sharing type
	ErrRoomFull = errors.New("room is at full capacity")
	// ErrRoomTypeMismatch is returned when the room is occupied with another sharing type
	ErrRoomTypeMismatch = errors.New("room is occupied with a different sharing type")
	// ErrNotFound is returned when a member id is unknown
	ErrNotFound = errors.New("member not found")
	// ErrConcurrentModification is returned when a versioned write lost a race
	ErrConcurrentModification = errors.New("member was modified by another request")
	// ErrStorageFailure is returned when the persistence collaborator fails
	ErrStorageFailure = errors.New("storage failure")
)

var (
	ErrDuplicatePhone   = fmt.Errorf("%w: a member with this phone number already exists", ErrDuplicateIdentity)
	ErrDuplicateEmail   = fmt.Errorf("%w: a member with this email address already exists", ErrDuplicateIdentity)
	ErrUnknownRoom      = fmt.Errorf("%w: room does not exist", ErrValidation)
	ErrInvalidShareType = fmt.Errorf("%w: unrecognized sharing type", ErrValidation)
	ErrInvalidFloor     = fmt.Errorf("%w: unrecognized floor", ErrValidation)
	ErrInvalidMonth     = fmt.Errorf("%w: invalid month key", ErrValidation)
	ErrMemberInactive   = fmt.Errorf("%w: cannot update payment status for inactive member", ErrValidation)
	ErrAlreadyPaid      = fmt.Errorf("%w: rent for this month is already paid", ErrValidation)
)

// ValidationError collects field-level problems
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records a problem for field, keeping the first message
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// HasErrors reports whether any field failed
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StorageError hides collaborator detail behind a generic message
type StorageError struct {
	Op  string
	Err error
}

// Storage wraps a persistence failure for operation op
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return "storage failure during " + e.Op
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Detail returns the wrapped cause for logging
func Detail(err error) string {
	var se *StorageError
	if errors.As(err, &se) && se.Err != nil {
		return se.Op + ": " + se.Err.Error()
	}
	return err.Error()
}
