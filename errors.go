package bundlecrypt

import (
	"errors"
	"fmt"
)

// Error types represent different categories of per-bundle failures.
// Every one of them is non-fatal for the batch: the downloader records the
// bundle as failed and retries it on the next pass.

// ContainerError represents a structural validation failure of the bundle
// container framing (bad magic, version, reserved field, or flag).
type ContainerError struct {
	Path    string // Bundle relative path, if applicable
	Field   string // Header field that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ContainerError) Error() string {
	if e.Path != "" && e.Field != "" {
		return fmt.Sprintf("malformed container: %s: %s: %s", e.Path, e.Field, e.Message)
	} else if e.Field != "" {
		return fmt.Sprintf("malformed container: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("malformed container: %s", e.Message)
}

func (e *ContainerError) Unwrap() error {
	return e.Err
}

// IntegrityError represents a mismatch between the stored payload hash and
// the hash computed over the fetched ciphertext region.
type IntegrityError struct {
	Path     string // Bundle relative path
	Expected string // Stored digest, hex
	Actual   string // Computed digest, hex
}

func (e *IntegrityError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("integrity mismatch: %s: stored %s, computed %s", e.Path, e.Expected, e.Actual)
	}
	return fmt.Sprintf("integrity mismatch: stored %s, computed %s", e.Expected, e.Actual)
}

// TransportError represents a network fetch failure.
type TransportError struct {
	Path       string // Bundle relative path
	StatusCode int    // HTTP status, if the request completed
	Message    string // Human-readable error message
	Err        error  // Underlying error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error: %s: status %d: %s", e.Path, e.StatusCode, e.Message)
	} else if e.Path != "" {
		return fmt.Sprintf("transport error: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("transport error: %s", e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PersistenceError represents a failure writing a decoded bundle to the
// output filesystem.
type PersistenceError struct {
	Operation string // "mkdir", "create", "write", "rename", etc.
	Path      string // Output path
	Message   string // Human-readable error message
	Err       error  // Underlying error
}

func (e *PersistenceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("persistence error: %s %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("persistence error: %s: %s", e.Operation, e.Message)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ProtocolError represents an unexpected decode failure that is neither a
// framing violation nor an integrity mismatch. It is retried like any other
// failure but logged distinctly, since it may indicate a key-derivation bug
// rather than a transient condition.
type ProtocolError struct {
	Path    string // Bundle relative path
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *ProtocolError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("protocol corruption: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("protocol corruption: %s", e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Common sentinel errors
var (
	ErrMalformedContainer = errors.New("malformed bundle container")
	ErrIntegrityMismatch  = errors.New("payload hash mismatch")
	ErrShortPayload       = errors.New("payload shorter than container framing")
	ErrBadMagic           = errors.New("bad container magic")
	ErrBadVersion         = errors.New("unsupported container version")
	ErrNilConfig          = errors.New("config cannot be nil")
	ErrEmptyCatalog       = errors.New("catalog contains no bundles")
	ErrRetriesExhausted   = errors.New("retry pass limit reached with failures remaining")
)

// Helper functions for creating structured errors

// NewContainerError creates a new container framing error
func NewContainerError(path, field, message string) error {
	return &ContainerError{
		Path:    path,
		Field:   field,
		Message: message,
		Err:     ErrMalformedContainer,
	}
}

// NewIntegrityError creates a new integrity mismatch error
func NewIntegrityError(path, expected, actual string) error {
	return &IntegrityError{
		Path:     path,
		Expected: expected,
		Actual:   actual,
	}
}

// NewTransportError creates a new transport error
func NewTransportError(path string, status int, err error) error {
	return &TransportError{
		Path:       path,
		StatusCode: status,
		Message:    err.Error(),
		Err:        err,
	}
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(operation, path string, err error) error {
	return &PersistenceError{
		Operation: operation,
		Path:      path,
		Message:   err.Error(),
		Err:       err,
	}
}

// NewProtocolError creates a new protocol corruption error
func NewProtocolError(path string, err error) error {
	return &ProtocolError{
		Path:    path,
		Message: err.Error(),
		Err:     err,
	}
}

// Error checking helpers

// IsContainerError checks if an error is a container framing error
func IsContainerError(err error) bool {
	var ce *ContainerError
	return errors.As(err, &ce)
}

// IsIntegrityError checks if an error is an integrity mismatch
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// IsTransportError checks if an error is a transport error
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsPersistenceError checks if an error is a persistence error
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsProtocolError checks if an error is a protocol corruption error
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
