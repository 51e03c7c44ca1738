// Package ngram builds the fixed-length digit-run dictionary.
//
// For a run length L the dictionary holds one precomposed symbol for every
// zero-padded L-digit string "00..0" through "99..9": it is exhaustive, not a
// cache. Each entry places the L digit glyphs side by side, so a run of L
// digits in the input collapses into a single placement.
//
// Building costs 10^L symbols and L·10^L placements per document; callers
// trade that against the number of placements saved on the text itself.
package ngram

import (
	"fmt"

	"github.com/arloliu/textgds/errs"
	"github.com/arloliu/textgds/glyph"
	"github.com/arloliu/textgds/internal/options"
	"github.com/arloliu/textgds/layout"
)

// MaxLength is the largest supported run length (10^8 entries).
const MaxLength = 8

// Alphabet is the dictionary alphabet, in key order.
const Alphabet = "0123456789"

// Dictionary maps every L-digit string to its precomposed symbol.
// Entries are indexed by the integer value of their key.
type Dictionary struct {
	length  int
	handles []layout.Handle
}

type buildConfig struct {
	progressEvery int
	progress      func(built, total int)
}

// Option configures Build.
type Option = options.Option[*buildConfig]

// WithProgress calls fn after every `every` entries and once at the end.
func WithProgress(every int, fn func(built, total int)) Option {
	return options.NoError(func(c *buildConfig) {
		c.progressEvery = every
		c.progress = fn
	})
}

// Build creates the dictionary entries for run length length in doc.
//
// Parameters:
//   - doc: document receiving the entry symbols
//   - glyphs: glyph symbols of the same document; must contain '0'..'9' when length > 0
//   - length: run length L, 0 <= L <= MaxLength; 0 yields an empty dictionary
//
// Returns:
//   - *Dictionary: the exhaustive dictionary
//   - error: errs.ErrInvalidRunLength, *errs.MissingGlyphError, or a document error
func Build(doc *layout.Document, glyphs *glyph.Map, length int, opts ...Option) (*Dictionary, error) {
	if length < 0 || length > MaxLength {
		return nil, fmt.Errorf("%w: %d (allowed 0..%d)", errs.ErrInvalidRunLength, length, MaxLength)
	}

	cfg := &buildConfig{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	d := &Dictionary{length: length}
	if length == 0 {
		return d, nil
	}

	var digitGlyphs [10]layout.Handle
	for i := range len(Alphabet) {
		h, ok := glyphs.Lookup(rune(Alphabet[i]))
		if !ok {
			return nil, &errs.MissingGlyphError{Char: rune(Alphabet[i])}
		}
		digitGlyphs[i] = h
	}

	total := pow10(length)
	d.handles = make([]layout.Handle, total)

	// digits holds the key of entry i, most significant first.
	digits := make([]int, length)
	for i := range total {
		h, err := doc.NewSymbol()
		if err != nil {
			return nil, fmt.Errorf("dictionary entry %s: %w", keyOf(digits), err)
		}

		x := 0.0
		for _, dg := range digits {
			if err := doc.AddPlacement(h, digitGlyphs[dg], layout.Point{X: x, Y: 0}); err != nil {
				return nil, err
			}
			x += glyphs.AdvanceX
		}
		d.handles[i] = h

		increment(digits)

		if cfg.progress != nil && cfg.progressEvery > 0 && (i+1)%cfg.progressEvery == 0 {
			cfg.progress(i+1, total)
		}
	}
	if cfg.progress != nil {
		cfg.progress(total, total)
	}

	return d, nil
}

// Length returns the run length L.
func (d *Dictionary) Length() int {
	return d.length
}

// Len returns the number of entries: 10^L, or 0 when L is 0.
func (d *Dictionary) Len() int {
	return len(d.handles)
}

// Lookup returns the entry for key, which must be exactly L digits.
func (d *Dictionary) Lookup(key string) (layout.Handle, bool) {
	if d.length == 0 || len(key) != d.length {
		return layout.NoSymbol, false
	}

	idx, ok := d.Match(key, 0)
	if !ok {
		return layout.NoSymbol, false
	}

	return d.handles[idx], true
}

// Match reports whether the L bytes of s starting at pos form a dictionary key,
// and returns the entry index if so.
func (d *Dictionary) Match(s string, pos int) (int, bool) {
	if d.length == 0 || pos < 0 || len(s)-pos < d.length {
		return 0, false
	}

	idx := 0
	for k := range d.length {
		c := s[pos+k]
		if c < '0' || c > '9' {
			return 0, false
		}
		idx = idx*10 + int(c-'0')
	}

	return idx, true
}

// Handle returns the symbol of entry idx.
func (d *Dictionary) Handle(idx int) layout.Handle {
	return d.handles[idx]
}

// Key returns the zero-padded key of entry idx.
func (d *Dictionary) Key(idx int) string {
	return FormatKey(idx, d.length)
}

// FormatKey zero-pads idx to length digits.
func FormatKey(idx, length int) string {
	buf := make([]byte, length)
	for k := length - 1; k >= 0; k-- {
		buf[k] = byte('0' + idx%10)
		idx /= 10
	}

	return string(buf)
}

func keyOf(digits []int) string {
	buf := make([]byte, len(digits))
	for i, d := range digits {
		buf[i] = Alphabet[d]
	}

	return string(buf)
}

// increment advances digits as a base-10 odometer.
func increment(digits []int) {
	for k := len(digits) - 1; k >= 0; k-- {
		if digits[k] < 9 {
			digits[k]++
			return
		}
		digits[k] = 0
	}
}

func pow10(n int) int {
	v := 1
	for range n {
		v *= 10
	}

	return v
}
