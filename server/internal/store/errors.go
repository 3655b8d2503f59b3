package store

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates a record field is missing or would corrupt the line format.
	ErrValidation = errors.New("store: invalid record")

	// ErrIO indicates the store file could not be read, locked, or written.
	ErrIO = errors.New("store: I/O failure")

	// ErrParse indicates a persisted line does not split into exactly three fields.
	ErrParse = errors.New("store: malformed line")
)

// ParseError reports a malformed line in the store file.
type ParseError struct {
	// Line is the 1-based line number in the file.
	Line int
	// Text is the raw line content.
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v at line %d: %q", ErrParse, e.Line, e.Text)
}

// Unwrap lets errors.Is(err, ErrParse) match.
func (e *ParseError) Unwrap() error { return ErrParse }

func ioErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
