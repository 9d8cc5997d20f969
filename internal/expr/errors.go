package expr

import (
	"errors"
	"fmt"
)

// Error is a lexing, parsing or evaluation failure. Pos is the byte offset
// into the source, or -1 when unknown. Err is the environment error behind
// a failed attribute lookup.
type Error struct {
	Pos     int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Pos < 0 {
		return "expr: " + e.Message
	}
	return fmt.Sprintf("expr: at %d: %s", e.Pos, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func errorf(pos int, format string, args ...any) *Error {
	return &Error{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// IsExprError reports whether err is an expression Error.
func IsExprError(err error) bool {
	var ee *Error
	return errors.As(err, &ee)
}
