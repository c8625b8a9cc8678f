package publish

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrObjectExists indicates a conditional write found the key already taken
	ErrObjectExists = errors.New("object already exists")

	// ErrObjectNotFound indicates an object was not found
	ErrObjectNotFound = errors.New("object not found")
)

// Validation error codes
const (
	CodeMissingFields      = "missing_fields"
	CodeInvalidContentType = "invalid_content_type"
	CodeInvalidRecordID    = "invalid_record_id"
)

// ValidationError is returned for requests the caller must fix
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
