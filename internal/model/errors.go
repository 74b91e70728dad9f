package model

import "errors"

// ErrorKind classifies the recoverable failures the store reports. The
// transport layer maps kinds to wire-level status codes; nothing compares
// error message strings.
type ErrorKind string

const (
	ErrGameNotFound         ErrorKind = "game_not_found"
	ErrGameHostNotFound     ErrorKind = "game_host_not_found"
	ErrPlayerNotFound       ErrorKind = "player_not_found"
	ErrPlayerCreationFailed ErrorKind = "player_creation_failed"
	ErrGameCreationFailed   ErrorKind = "game_creation_failed"
)

// defaultMessages holds the human-readable message for each kind.
var defaultMessages = map[ErrorKind]string{
	ErrGameNotFound:         "game not found",
	ErrGameHostNotFound:     "game host not found",
	ErrPlayerNotFound:       "player not found",
	ErrPlayerCreationFailed: "failed to create player",
	ErrGameCreationFailed:   "failed to create game",
}

// StoreError is a typed store failure carrying a machine-readable kind
// and a human-readable message. It may wrap an underlying cause such as
// a database error.
type StoreError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

// NewStoreError creates a StoreError with the default message for kind.
func NewStoreError(kind ErrorKind) *StoreError {
	return &StoreError{Kind: kind, Message: defaultMessages[kind]}
}

// NewStoreErrorMsg creates a StoreError with a custom message.
func NewStoreErrorMsg(kind ErrorKind, message string) *StoreError {
	return &StoreError{Kind: kind, Message: message}
}

// WrapStoreError creates a StoreError of the given kind wrapping cause.
func WrapStoreError(kind ErrorKind, cause error) *StoreError {
	return &StoreError{Kind: kind, Message: defaultMessages[kind], cause: cause}
}

func (e *StoreError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return e.cause
}

// Is makes errors.Is match two StoreErrors of the same kind, so wrapped
// store errors can be compared against NewStoreError(kind) sentinels.
func (e *StoreError) Is(target error) bool {
	var se *StoreError
	if !errors.As(target, &se) {
		return false
	}
	return e.Kind == se.Kind
}

// IsKind reports whether err is, or wraps, a StoreError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == kind
}
