// Package compiler turns lines of text into placements of glyph and
// dictionary symbols.
//
// Matching is greedy and fixed-length: at every position the compiler first
// tries the next L characters against the dictionary, and if they do not form
// a key it consumes exactly one character on its own. There is no backtracking
// and no shorter match. Every character, matched or not, advances the cursor by
// exactly one glyph width, so the extent of a row depends on its length only.
package compiler

import (
	"fmt"
	"unicode/utf8"

	"github.com/arloliu/textgds/errs"
	"github.com/arloliu/textgds/glyph"
	"github.com/arloliu/textgds/layout"
	"github.com/arloliu/textgds/ngram"
)

// Space is the blank character. It advances the cursor and places nothing.
const Space = ' '

// RowStats describes one compiled row.
type RowStats struct {
	Chars      int     // characters consumed, spaces included
	Placements int     // placements added to the destination
	Matches    int     // dictionary placements
	Fallbacks  int     // single glyph placements
	Spaces     int     // blank characters
	Advance    float64 // total horizontal advance
}

// Totals accumulates RowStats over every row compiled by one Compiler.
type Totals struct {
	Rows       int
	Chars      int
	Placements int
	Matches    int
	Fallbacks  int
}

// Compiler appends rows to one destination symbol of one document.
// It is not safe for concurrent use.
type Compiler struct {
	doc    *layout.Document
	glyphs *glyph.Map
	dict   *ngram.Dictionary
	dest   layout.Handle
	length int

	usage  map[int]uint64 // dictionary index -> placements
	totals Totals
}

// New creates a compiler placing into dest.
//
// Parameters:
//   - doc: document owning glyphs, dictionary and dest
//   - glyphs: glyph symbols of doc
//   - dict: dictionary of doc; nil or length 0 disables dictionary matching
//   - dest: destination symbol; it must be created after every glyph and dictionary symbol
func New(doc *layout.Document, glyphs *glyph.Map, dict *ngram.Dictionary, dest layout.Handle) (*Compiler, error) {
	if doc == nil || glyphs == nil {
		return nil, fmt.Errorf("compiler: document and glyph map are required")
	}
	if _, err := doc.Lookup(dest); err != nil {
		return nil, fmt.Errorf("compiler destination: %w", err)
	}

	c := &Compiler{
		doc:    doc,
		glyphs: glyphs,
		dict:   dict,
		dest:   dest,
		usage:  make(map[int]uint64),
	}
	if dict != nil {
		c.length = dict.Length()
	}

	return c, nil
}

// CompileRow compiles one line of text at vertical offset y.
//
// The text must not contain the line terminator. row is the 0-based input row,
// used only for error positions.
//
// Returns:
//   - RowStats: what the row added
//   - error: *errs.MissingGlyphError with 1-based row and column, or a document error
//
// On error the destination may already hold some of the row's placements; the
// caller is expected to discard the whole document.
func (c *Compiler) CompileRow(text string, row int, y float64) (RowStats, error) {
	var st RowStats
	adv := c.glyphs.AdvanceX
	x := 0.0
	col := 0 // runes consumed so far

	for pos := 0; pos < len(text); {
		if c.length > 0 {
			if idx, ok := c.dict.Match(text, pos); ok {
				if err := c.doc.AddPlacement(c.dest, c.dict.Handle(idx), layout.Point{X: x, Y: y}); err != nil {
					return st, err
				}
				c.usage[idx]++
				x += float64(c.length) * adv
				pos += c.length
				col += c.length
				st.Chars += c.length
				st.Matches++
				st.Placements++

				continue
			}
		}

		ch, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
		col++
		st.Chars++

		if ch == Space {
			x += adv
			st.Spaces++

			continue
		}

		h, ok := c.glyphs.Lookup(ch)
		if !ok {
			return st, &errs.MissingGlyphError{Char: ch, Row: row + 1, Column: col}
		}
		if err := c.doc.AddPlacement(c.dest, h, layout.Point{X: x, Y: y}); err != nil {
			return st, err
		}
		x += adv
		st.Fallbacks++
		st.Placements++
	}
	st.Advance = x

	c.totals.Rows++
	c.totals.Chars += st.Chars
	c.totals.Placements += st.Placements
	c.totals.Matches += st.Matches
	c.totals.Fallbacks += st.Fallbacks

	return st, nil
}

// Totals returns the accumulated statistics of every successful row.
func (c *Compiler) Totals() Totals {
	return c.totals
}

// Usage returns the dictionary placements made so far, keyed by dictionary key.
func (c *Compiler) Usage() map[string]uint64 {
	out := make(map[string]uint64, len(c.usage))
	for idx, n := range c.usage {
		out[c.dict.Key(idx)] = n
	}

	return out
}
