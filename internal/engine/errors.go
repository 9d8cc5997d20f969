package engine

import (
	"errors"
	"fmt"
)

// OpError reports an instruction that failed during Apply.
//
// A failed instruction leaves the world as it was before that instruction,
// except for per-node failures inside multi-node operations, where the
// nodes already processed keep their changes.
type OpError struct {
	// Index is the instruction's position in the production.
	Index int

	// Op is the instruction operation.
	Op string

	// Code identifies the failure category.
	Code OpErrorCode

	// Message is a human-readable description.
	Message string
}

// OpErrorCode categorizes instruction failures.
type OpErrorCode string

const (
	// ErrCodeBadParams indicates missing or malformed instruction parameters.
	ErrCodeBadParams OpErrorCode = "BAD_PARAMS"

	// ErrCodeUnresolved indicates a reference that matched nothing.
	ErrCodeUnresolved OpErrorCode = "UNRESOLVED"

	// ErrCodeAmbiguous indicates a single-node reference that matched several.
	ErrCodeAmbiguous OpErrorCode = "AMBIGUOUS"

	// ErrCodeTypeMismatch indicates add/mul on a non-numeric value.
	ErrCodeTypeMismatch OpErrorCode = "TYPE_MISMATCH"

	// ErrCodeMissingAttribute indicates unset of an absent attribute.
	ErrCodeMissingAttribute OpErrorCode = "MISSING_ATTRIBUTE"

	// ErrCodeOrphan indicates an attempt to detach a node with no parent.
	ErrCodeOrphan OpErrorCode = "ORPHAN"

	// ErrCodeUnknownOp indicates an unrecognised operation.
	ErrCodeUnknownOp OpErrorCode = "UNKNOWN_OP"

	// ErrCodeCycle indicates a move into the node itself or its descendant.
	ErrCodeCycle OpErrorCode = "CYCLE"
)

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("%s: instruction %d (%s): %s", e.Code, e.Index, e.Op, e.Message)
}

func opErrorf(code OpErrorCode, format string, args ...any) *OpError {
	return &OpError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsOpError reports whether err is an OpError.
// Uses errors.As to handle wrapped errors.
func IsOpError(err error) bool {
	var oe *OpError
	return errors.As(err, &oe)
}

// OpErrorCodeOf returns the code of a wrapped OpError, or "".
func OpErrorCodeOf(err error) OpErrorCode {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}
