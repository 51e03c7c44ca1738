package glyph

import (
	"slices"

	"github.com/arloliu/textgds/font"
	"github.com/arloliu/textgds/format"
	"github.com/arloliu/textgds/layout"
)

// ReferenceStrategy builds each glyph from placements of one shared unit-pixel
// symbol, one placement per on cell. Bitmap row 0 is the top visual row and
// the glyph origin is its bottom-left corner.
type ReferenceStrategy struct{}

var _ Strategy = ReferenceStrategy{}

func (ReferenceStrategy) Mode() format.GlyphMode {
	return format.GlyphReference
}

func (ReferenceStrategy) NewBuilder(doc *layout.Document, p Params) (Builder, error) {
	pixel, err := doc.NewSymbol()
	if err != nil {
		return nil, err
	}
	rect := layout.Rectangle(p.Layer, p.Datatype, 0, 0, p.PixelSize, p.PixelSize)
	if err := doc.AddPolygon(pixel, rect); err != nil {
		return nil, err
	}

	return &referenceBuilder{doc: doc, params: p, pixel: pixel}, nil
}

type referenceBuilder struct {
	doc    *layout.Document
	params Params
	pixel  layout.Handle
}

func (b *referenceBuilder) Pixel() layout.Handle {
	return b.pixel
}

func (b *referenceBuilder) Build(h layout.Handle, bm font.Bitmap) error {
	ps := b.params.PixelSize
	for y, row := range bm.Rows {
		for x, on := range row {
			if !on {
				continue
			}
			origin := layout.Point{X: float64(x) * ps, Y: float64(b.params.Height-1-y) * ps}
			if err := b.doc.AddPlacement(h, b.pixel, origin); err != nil {
				return err
			}
		}
	}

	return nil
}

// MergedStrategy builds each glyph from as few rectangles as a greedy merge
// allows: horizontal runs of on cells first, then runs with identical extents
// on consecutive rows. No pixel symbol is created.
type MergedStrategy struct{}

var _ Strategy = MergedStrategy{}

func (MergedStrategy) Mode() format.GlyphMode {
	return format.GlyphMerged
}

func (MergedStrategy) NewBuilder(doc *layout.Document, p Params) (Builder, error) {
	return &mergedBuilder{doc: doc, params: p}, nil
}

type mergedBuilder struct {
	doc    *layout.Document
	params Params
}

func (b *mergedBuilder) Pixel() layout.Handle {
	return layout.NoSymbol
}

func (b *mergedBuilder) Build(h layout.Handle, bm font.Bitmap) error {
	ps := b.params.PixelSize
	height := b.params.Height

	for _, r := range MergeRuns(bm) {
		rect := layout.Rectangle(b.params.Layer, b.params.Datatype,
			float64(r.X0)*ps, float64(height-1-r.Bottom)*ps,
			float64(r.X1)*ps, float64(height-r.Top)*ps,
		)
		if err := b.doc.AddPolygon(h, rect); err != nil {
			return err
		}
	}

	return nil
}

// Block is a rectangle of on cells in bitmap coordinates: columns [X0, X1)
// and rows Top..Bottom inclusive, with row 0 at the top.
type Block struct {
	X0, X1      int
	Top, Bottom int
}

// MergeRuns covers the on cells of bm with disjoint blocks, ordered by Top then X0.
func MergeRuns(bm font.Bitmap) []Block {
	var closed, open []Block

	for y, row := range bm.Rows {
		next := make([]Block, 0, len(open))
		for x := 0; x < len(row); {
			if !row[x] {
				x++
				continue
			}
			x0 := x
			for x < len(row) && row[x] {
				x++
			}

			idx := slices.IndexFunc(open, func(b Block) bool { return b.X0 == x0 && b.X1 == x })
			if idx >= 0 {
				blk := open[idx]
				blk.Bottom = y
				next = append(next, blk)
				open = slices.Delete(open, idx, idx+1)
			} else {
				next = append(next, Block{X0: x0, X1: x, Top: y, Bottom: y})
			}
		}
		closed = append(closed, open...)
		open = next
	}
	closed = append(closed, open...)

	slices.SortFunc(closed, func(a, b Block) int {
		if a.Top != b.Top {
			return a.Top - b.Top
		}

		return a.X0 - b.X0
	})

	return closed
}
