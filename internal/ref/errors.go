package ref

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes reference failures.
type ErrorCode string

const (
	// ErrCodeNotFound indicates nothing matched a reference that must match.
	ErrCodeNotFound ErrorCode = "REF_NOT_FOUND"

	// ErrCodeAmbiguous indicates several nodes matched where one was required.
	ErrCodeAmbiguous ErrorCode = "REF_AMBIGUOUS"

	// ErrCodeSyntax indicates a malformed reference string.
	ErrCodeSyntax ErrorCode = "REF_SYNTAX"

	// ErrCodeUnbound indicates the anchor has no world counterpart in the variant.
	ErrCodeUnbound ErrorCode = "REF_UNBOUND"
)

// Error is a reference resolution failure.
type Error struct {
	Code    ErrorCode
	Ref     string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %q: %s", e.Code, e.Ref, e.Message)
}

func newError(code ErrorCode, ref, format string, args ...any) *Error {
	return &Error{Code: code, Ref: ref, Message: fmt.Sprintf(format, args...)}
}

// IsRefError reports whether err is a reference Error.
// Uses errors.As to handle wrapped errors.
func IsRefError(err error) bool {
	var re *Error
	return errors.As(err, &re)
}

// CodeOf returns the code of a wrapped Error, or "".
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
