package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrStale is returned for a handle whose node no longer exists.
	ErrStale = errors.New("stale handle")

	// ErrNoParent is returned when a node has no owning parent. Locations
	// can never be moved or deleted through child removal.
	ErrNoParent = errors.New("node has no parent")

	// ErrLayer is returned when a layer invariant would be broken.
	ErrLayer = errors.New("layer violation")

	// ErrNotChild is returned when a node is not in the given (parent, layer).
	ErrNotChild = errors.New("not a child of parent in layer")

	// ErrAttached is returned when adding a node that already has an owner.
	ErrAttached = errors.New("node already attached")

	// ErrCycle is returned when a node would become its own ancestor.
	ErrCycle = errors.New("node would own itself")
)

// LoadErrorCode categorizes document load failures.
type LoadErrorCode string

const (
	// ErrCodeMalformed indicates a structurally invalid document.
	ErrCodeMalformed LoadErrorCode = "E001"

	// ErrCodeLayerViolation indicates Connections off a Location or
	// IsObject off a Character.
	ErrCodeLayerViolation LoadErrorCode = "E002"

	// ErrCodeUnresolvedDestination indicates a Connection naming nothing.
	ErrCodeUnresolvedDestination LoadErrorCode = "E003"

	// ErrCodeAmbiguousDestination indicates a Connection naming several Locations.
	ErrCodeAmbiguousDestination LoadErrorCode = "E004"
)

// LoadError is a fatal document load error. Nothing is matched against a
// world or production that failed to load.
type LoadError struct {
	Code    LoadErrorCode
	Path    string // document path, e.g. Locations[0].Characters[1]
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// IsLoadError reports whether err is a LoadError.
// Uses errors.As to handle wrapped errors.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// LoadErrorCodeOf returns the code of a wrapped LoadError, or "".
func LoadErrorCodeOf(err error) LoadErrorCode {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
