package phpast

import (
	"errors"
	"fmt"
)

// Sentinel errors for PHP parsing.
var (
	// ErrParse is matched by every *ParseError via errors.Is.
	ErrParse = errors.New("php parse error")

	errNoRootNode = errors.New("php parser: no root node")
	errPoolType   = errors.New("php parser: pool returned unexpected type")
)

// ParseError reports that a source file could not be turned into a well-formed
// syntax tree. Line and Column are 1-based and point at the first broken node.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Near   string
}

// Error implements error.
func (e *ParseError) Error() string {
	if e.Near != "" {
		return fmt.Sprintf("%s:%d:%d: syntax error near %q", e.Path, e.Line, e.Column, e.Near)
	}

	return fmt.Sprintf("%s:%d:%d: syntax error", e.Path, e.Line, e.Column)
}

// Unwrap lets callers match any parse failure with errors.Is(err, ErrParse).
func (e *ParseError) Unwrap() error {
	return ErrParse
}
