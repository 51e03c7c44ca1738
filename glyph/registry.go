// Package glyph turns font bitmaps into reusable layout symbols.
//
// A Registry holds a parsed font and builds one symbol per declared character
// into a document. It is built once per part: symbols never cross documents.
// How a bitmap becomes geometry is decided by a Strategy, chosen before any
// dictionary is built on top of the glyphs.
package glyph

import (
	"fmt"
	"math"

	"github.com/arloliu/textgds/errs"
	"github.com/arloliu/textgds/font"
	"github.com/arloliu/textgds/format"
	"github.com/arloliu/textgds/layout"
)

// Params describes the geometry shared by every glyph of a registry.
type Params struct {
	PixelSize float64 // edge length of one font pixel in user units
	Width     int     // glyph width in pixels
	Height    int     // glyph height in pixels
	Layer     int16
	Datatype  int16
}

// Strategy converts bitmaps into glyph symbol geometry.
type Strategy interface {
	Mode() format.GlyphMode
	// NewBuilder prepares per-document state, such as a shared pixel symbol.
	NewBuilder(doc *layout.Document, p Params) (Builder, error)
}

// Builder fills glyph symbols for one document.
type Builder interface {
	// Build adds the geometry of bm to the empty symbol h.
	Build(h layout.Handle, bm font.Bitmap) error
	// Pixel returns the shared unit-pixel symbol, or layout.NoSymbol if the strategy has none.
	Pixel() layout.Handle
}

// StrategyFor returns the built-in strategy for mode.
func StrategyFor(mode format.GlyphMode) (Strategy, error) {
	switch mode {
	case format.GlyphReference:
		return ReferenceStrategy{}, nil
	case format.GlyphMerged:
		return MergedStrategy{}, nil
	default:
		return nil, fmt.Errorf("unsupported glyph mode: %s", mode)
	}
}

// Map is the per-document mapping from character to glyph symbol.
type Map struct {
	glyphs   map[rune]layout.Handle
	pixel    layout.Handle
	AdvanceX float64 // horizontal step between characters
	AdvanceY float64 // vertical step between rows
}

// Lookup returns the glyph symbol for ch.
func (m *Map) Lookup(ch rune) (layout.Handle, bool) {
	h, ok := m.glyphs[ch]
	return h, ok
}

// Len returns the number of glyph symbols.
func (m *Map) Len() int {
	return len(m.glyphs)
}

// Pixel returns the shared pixel symbol, or layout.NoSymbol for merged glyphs.
func (m *Map) Pixel() layout.Handle {
	return m.pixel
}

// Registry builds glyph symbols from a font.
type Registry struct {
	font     *font.Font
	strategy Strategy
	params   Params
}

// NewRegistry creates a registry for f.
//
// Parameters:
//   - f: parsed font; its glyph size fixes the character advance
//   - pixelSize: edge length of one font pixel, must be positive and finite
//   - strategy: glyph geometry strategy; nil means ReferenceStrategy
//   - layer, datatype: layer assignment of the primitive geometry
func NewRegistry(f *font.Font, pixelSize float64, strategy Strategy, layer, datatype int16) (*Registry, error) {
	if f == nil {
		return nil, &errs.FontFormatError{Reason: "no font"}
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil, &errs.FontFormatError{Reason: fmt.Sprintf("glyph size must be positive, got %dx%d", f.Width, f.Height)}
	}
	if !(pixelSize > 0) || math.IsInf(pixelSize, 0) {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidPixelSize, pixelSize)
	}
	if strategy == nil {
		strategy = ReferenceStrategy{}
	}

	return &Registry{
		font:     f,
		strategy: strategy,
		params: Params{
			PixelSize: pixelSize,
			Width:     f.Width,
			Height:    f.Height,
			Layer:     layer,
			Datatype:  datatype,
		},
	}, nil
}

// Params returns the registry geometry.
func (r *Registry) Params() Params {
	return r.params
}

// Mode returns the registry's glyph strategy mode.
func (r *Registry) Mode() format.GlyphMode {
	return r.strategy.Mode()
}

// Font returns the registry's font.
func (r *Registry) Font() *font.Font {
	return r.font
}

// Build creates the glyph symbols in doc, in font declaration order.
func (r *Registry) Build(doc *layout.Document) (*Map, error) {
	builder, err := r.strategy.NewBuilder(doc, r.params)
	if err != nil {
		return nil, err
	}

	m := &Map{
		glyphs:   make(map[rune]layout.Handle, len(r.font.Order)),
		pixel:    builder.Pixel(),
		AdvanceX: float64(r.params.Width) * r.params.PixelSize,
		AdvanceY: float64(r.params.Height) * r.params.PixelSize,
	}

	for _, ch := range r.font.Order {
		bm := r.font.Glyphs[ch]
		if len(bm.Rows) != r.params.Height {
			return nil, &errs.FontFormatError{Glyph: string(ch), Reason: fmt.Sprintf("bitmap has %d rows, want %d", len(bm.Rows), r.params.Height)}
		}
		for _, row := range bm.Rows {
			if len(row) != r.params.Width {
				return nil, &errs.FontFormatError{Glyph: string(ch), Reason: fmt.Sprintf("bitmap row has %d cells, want %d", len(row), r.params.Width)}
			}
		}

		h, err := doc.NewSymbol()
		if err != nil {
			return nil, fmt.Errorf("glyph %q: %w", ch, err)
		}
		if err := builder.Build(h, bm); err != nil {
			return nil, fmt.Errorf("glyph %q: %w", ch, err)
		}
		m.glyphs[ch] = h
	}

	return m, nil
}
