// Package errs defines the errors returned by textgds packages.
//
// Sentinel errors are compared with errors.Is. The structured error types carry
// enough context (glyph, character, row, column, part) to diagnose a failed run
// without re-running it, and are matched with errors.As.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrInvalidName is returned when a symbol name is empty or not legal for the output format.
	ErrInvalidName = errors.New("invalid symbol name")

	// ErrDuplicateName is returned when a symbol name is used twice within one document.
	ErrDuplicateName = errors.New("duplicate symbol name")

	// ErrUnknownSymbol is returned when a handle does not refer to a symbol of the document.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrSymbolFrozen is returned when a finalized document is modified.
	ErrSymbolFrozen = errors.New("document is finalized")

	// ErrCyclicPlacement is returned when a placement would reference its parent or a later symbol.
	ErrCyclicPlacement = errors.New("placement must reference an earlier symbol")

	// ErrNoTopSymbol is returned when a document is finalized without a top-level symbol.
	ErrNoTopSymbol = errors.New("document has no top-level symbol")

	// ErrCoordinateOverflow is returned when a coordinate does not fit in the output integer range.
	ErrCoordinateOverflow = errors.New("coordinate overflows database unit range")

	// ErrInvalidRunLength is returned when the dictionary run length is negative or too large.
	ErrInvalidRunLength = errors.New("invalid dictionary run length")

	// ErrInvalidPixelSize is returned when the pixel size is not a positive finite number.
	ErrInvalidPixelSize = errors.New("invalid pixel size")

	// ErrInvalidUnits is returned when library unit or precision is not positive.
	ErrInvalidUnits = errors.New("invalid library units")

	// ErrInvalidRecord is returned when a stream record cannot be decoded.
	ErrInvalidRecord = errors.New("invalid stream record")

	// ErrLineTooLong is returned when an input line exceeds the configured maximum.
	ErrLineTooLong = errors.New("input line too long")

	// ErrUnsplitOutput is returned when a sink without split names receives a second part.
	ErrUnsplitOutput = errors.New("output produced more than one part without split names")
)

// FontFormatError reports malformed or truncated font data.
type FontFormatError struct {
	Glyph  string // offending glyph key, empty for header errors
	Line   int    // 1-based line number in the font source, 0 if unknown
	Reason string
}

func (e *FontFormatError) Error() string {
	if e.Glyph == "" {
		return fmt.Sprintf("font format error at line %d: %s", e.Line, e.Reason)
	}

	return fmt.Sprintf("font format error at line %d (glyph %q): %s", e.Line, e.Glyph, e.Reason)
}

// MissingGlyphError reports a character that has no glyph in the font.
//
// Row and Column are 1-based positions in the input text. Both are zero when
// the error is raised while building the dictionary rather than compiling input.
type MissingGlyphError struct {
	Char   rune
	Row    int
	Column int
}

func (e *MissingGlyphError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("missing glyph for character %q", e.Char)
	}

	return fmt.Sprintf("missing glyph for character %q at row %d, column %d", e.Char, e.Row, e.Column)
}

// SerializationError reports a failure while writing one part artifact.
type SerializationError struct {
	Part int    // 1-based part index
	Path string // artifact path, empty for non-file sinks
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("serialize part %d: %v", e.Part, e.Err)
	}

	return fmt.Sprintf("serialize part %d to %s: %v", e.Part, e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IdentifierExhaustionError reports that an identifier generator ran out of names.
//
// Generators grow without bound by default; this is only returned when a
// maximum name length was configured.
type IdentifierExhaustionError struct {
	Issued    uint64
	MaxLength int
}

func (e *IdentifierExhaustionError) Error() string {
	return fmt.Sprintf("identifier space exhausted after %d names (max length %d)", e.Issued, e.MaxLength)
}
