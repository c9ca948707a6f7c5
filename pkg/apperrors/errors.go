package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDependencyMissing = errors.New("driver binding missing")
	ErrInvalidParameter  = errors.New("invalid connection parameter")
	ErrConnection        = errors.New("connection error")
	ErrUnsupportedKind   = errors.New("unsupported database kind")
	ErrPoolExhausted     = errors.New("pool exhausted")
	ErrModeMismatch      = errors.New("mode mismatch")
)

// Error is a classified connection-layer error.
// Type is one of the sentinel errors above and is what errors.Is matches against.
type Error struct {
	Type    error  // Sentinel classification
	Kind    string // Database kind, if known
	Message string // Human-readable detail
	Cause   error  // Underlying driver error
}

// Error renders a single line: "<kind> <type>: <message>: <cause>".
func (e *Error) Error() string {
	var b strings.Builder
	if e.Kind != "" {
		b.WriteString(e.Kind)
		b.WriteString(" ")
	}
	b.WriteString(e.Type.Error())

	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Is reports whether target is this error's classification.
func (e *Error) Is(target error) bool {
	return e.Type == target
}

// Unwrap returns the underlying driver error for errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ConnectionError wraps a native driver failure raised while opening a connection.
func ConnectionError(kind string, cause error) *Error {
	return &Error{Type: ErrConnection, Kind: kind, Cause: cause}
}

// InvalidParameter reports a malformed connection parameter.
func InvalidParameter(kind, message string) *Error {
	return &Error{Type: ErrInvalidParameter, Kind: kind, Message: message}
}

// MissingParameters reports required connection fields that were not supplied.
func MissingParameters(kind string, missing []string) *Error {
	return &Error{
		Type:    ErrInvalidParameter,
		Kind:    kind,
		Message: "missing required parameters: " + strings.Join(missing, ", "),
	}
}

// UnsupportedKind reports an unknown database kind and lists the valid ones.
func UnsupportedKind(kind string, supported []string) *Error {
	return &Error{
		Type:    ErrUnsupportedKind,
		Message: fmt.Sprintf("%q (supported: %s)", kind, strings.Join(supported, ", ")),
	}
}

// DependencyMissing reports a known kind whose driver binding was not compiled in.
func DependencyMissing(kind, hint string) *Error {
	return &Error{Type: ErrDependencyMissing, Kind: kind, Message: hint}
}

// PoolExhausted reports a full pool with no recyclable slot.
func PoolExhausted(kind string, maxSize int) *Error {
	return &Error{
		Type:    ErrPoolExhausted,
		Kind:    kind,
		Message: fmt.Sprintf("maximum connections reached (%d)", maxSize),
	}
}

// ModeMismatch reports a blocking call on a non-blocking pool or the reverse.
func ModeMismatch(op, poolMode string) *Error {
	return &Error{
		Type:    ErrModeMismatch,
		Message: fmt.Sprintf("%s is not allowed on a %s pool", op, poolMode),
	}
}

// Normalize maps an arbitrary error into the taxonomy.
// Errors that are already classified pass through unchanged; anything else is
// treated as a driver failure and wrapped as a connection error.
func Normalize(kind string, err error) error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return ConnectionError(kind, err)
}

// IsClassified reports whether err carries one of the sentinel classifications.
func IsClassified(err error) bool {
	var classified *Error
	return errors.As(err, &classified)
}
