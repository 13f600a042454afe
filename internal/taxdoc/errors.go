package taxdoc

import (
	"errors"
	"fmt"
)

// Error codes for rejected requests. The extraction core itself never
// fails; only request problems surface as errors.
const (
	CodeInvalidPath     = "INVALID_PATH"
	CodeUnsupportedFile = "UNSUPPORTED_FILE"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeInvalidRequest  = "INVALID_REQUEST"
)

// Error is a request error with a stable code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so callers can test against
// the sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func newError(code, message string, cause ...error) *Error {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &Error{Code: code, Message: message, Cause: c}
}

var (
	ErrInvalidPath     = &Error{Code: CodeInvalidPath, Message: "invalid path"}
	ErrUnsupportedFile = &Error{Code: CodeUnsupportedFile, Message: "unsupported file"}
	ErrFileTooLarge    = &Error{Code: CodeFileTooLarge, Message: "file too large"}
	ErrInvalidRequest  = &Error{Code: CodeInvalidRequest, Message: "invalid request"}
)

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
