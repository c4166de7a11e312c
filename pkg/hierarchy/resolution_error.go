package hierarchy

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for class introspection.
var (
	// ErrResolution is matched by every *ResolutionError via errors.Is.
	ErrResolution = errors.New("class resolution failed")

	// ErrUnknownClass means the class is not declared in any indexed file.
	ErrUnknownClass = errors.New("class is not declared")
	// ErrUnknownAncestor means an ancestor is not declared (strict mode only).
	ErrUnknownAncestor = errors.New("ancestor is not declared")
	// ErrInheritanceCycle means the parent chain loops back on itself.
	ErrInheritanceCycle = errors.New("inheritance cycle")
	// ErrDuplicateClass means two files declare the same class.
	ErrDuplicateClass = errors.New("class declared in more than one file")
)

// ResolutionError reports a class that cannot be introspected.
type ResolutionError struct {
	Reason error
	Class  string
	Chain  []string
	Paths  []string
}

// Error implements error.
func (e *ResolutionError) Error() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "resolve %s: %v", e.Class, e.Reason)

	if len(e.Chain) > 0 {
		fmt.Fprintf(&sb, " (via %s)", strings.Join(e.Chain, " -> "))
	}

	if len(e.Paths) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(e.Paths, ", "))
	}

	return sb.String()
}

// Unwrap exposes both ErrResolution and the specific reason to errors.Is.
func (e *ResolutionError) Unwrap() []error {
	return []error{ErrResolution, e.Reason}
}
