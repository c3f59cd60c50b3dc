// internal/checkpoint/errors.go
package checkpoint

import "errors"

// ErrorCode distinguishes checkpoint failures machine-readably
type ErrorCode string

const (
	ErrNotARepository         ErrorCode = "not_a_repository"
	ErrCheckpointNotFound     ErrorCode = "checkpoint_not_found"
	ErrNoChangesToUndo        ErrorCode = "no_changes_to_undo"
	ErrInvalidCheckpointState ErrorCode = "invalid_checkpoint_state"
)

// Error is a coded checkpoint failure with a human-readable message
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf extracts the error code from err, or "" if err carries none
func CodeOf(err error) ErrorCode {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return ""
}
