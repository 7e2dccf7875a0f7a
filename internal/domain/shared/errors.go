package shared

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError represents a domain-level error surfaced to API clients
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound     = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnauthorized = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
)

// ---------------------------------------------------------------------------
// Sync error taxonomy
// ---------------------------------------------------------------------------

// ErrorKind classifies a failure by how far it propagates.
type ErrorKind string

const (
	// KindTransport is a failed remote call. Fatal to the enclosing fetch, never retried.
	KindTransport ErrorKind = "TRANSPORT"
	// KindStorage is a failed graph store operation. Fatal to the triggering event only.
	KindStorage ErrorKind = "STORAGE"
	// KindDataIntegrity marks a missing relation or metadata. The item is skipped and recorded.
	KindDataIntegrity ErrorKind = "DATA_INTEGRITY"
	// KindConfiguration aborts a whole resync or feed request.
	KindConfiguration ErrorKind = "CONFIGURATION"
	// KindValidation means the assembled document did not pass schema validation.
	KindValidation ErrorKind = "VALIDATION"
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	return string(k)
}

// SyncError is an error raised by the synchronization pipeline.
// Op names the operation that failed, e.g. "saleor.fetch_products".
type SyncError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Kind sentinels for use with errors.Is
var (
	ErrTransport     = &SyncError{Kind: KindTransport}
	ErrStorage       = &SyncError{Kind: KindStorage}
	ErrDataIntegrity = &SyncError{Kind: KindDataIntegrity}
	ErrConfiguration = &SyncError{Kind: KindConfiguration}
	ErrValidation    = &SyncError{Kind: KindValidation}
)

// Error implements the error interface
func (e *SyncError) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(string(e.Kind)))
	b.WriteString(" error")
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a kind sentinel of the same kind.
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	if !ok {
		return false
	}
	if t.Op != "" || t.Err != nil {
		return t == e
	}
	return t.Kind == e.Kind
}

func newSyncError(kind ErrorKind, op string, err error) *SyncError {
	return &SyncError{Kind: kind, Op: op, Err: err}
}

// NewTransportError wraps err as a transport failure of op
func NewTransportError(op string, err error) error {
	return newSyncError(KindTransport, op, err)
}

// NewStorageError wraps err as a storage failure of op
func NewStorageError(op string, err error) error {
	return newSyncError(KindStorage, op, err)
}

// NewDataIntegrityError wraps err as a data integrity failure of op
func NewDataIntegrityError(op string, err error) error {
	return newSyncError(KindDataIntegrity, op, err)
}

// NewConfigurationError wraps err as a configuration failure of op
func NewConfigurationError(op string, err error) error {
	return newSyncError(KindConfiguration, op, err)
}

// NewValidationError wraps err as a validation failure of op
func NewValidationError(op string, err error) error {
	return newSyncError(KindValidation, op, err)
}

// DataIntegrityf formats a data integrity error
func DataIntegrityf(op, format string, args ...any) error {
	return newSyncError(KindDataIntegrity, op, fmt.Errorf(format, args...))
}

// KindOf returns the kind of the first SyncError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// IsFatal reports whether err should abort a whole resync or feed request.
func IsFatal(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return true
	}
	switch kind {
	case KindConfiguration, KindTransport, KindValidation, KindStorage:
		return true
	default:
		return false
	}
}
