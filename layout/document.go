// Package layout models one hierarchical layout document: an arena of named
// symbols connected by placement references.
//
// Symbols are addressed by Handle, an index into the document's arena. A
// placement may only reference a symbol created before its parent, which makes
// every document acyclic by construction and lets the serializer emit symbols
// in ascending handle order with children always before their parents.
//
// A Document is owned by one part. It is not safe for concurrent use.
package layout

import (
	"fmt"

	"github.com/arloliu/textgds/errs"
	"github.com/arloliu/textgds/ident"
	"github.com/arloliu/textgds/internal/collision"
)

// Handle identifies a symbol within its document.
type Handle int32

// NoSymbol is the zero value for an unset handle.
const NoSymbol Handle = -1

// Point is a 2D coordinate in user units.
type Point struct {
	X, Y float64
}

// Polygon is a closed boundary on one layer. The closing vertex is implicit.
type Polygon struct {
	Layer    int16
	Datatype int16
	Points   []Point
}

// Rectangle returns the axis-aligned rectangle with corners (x0, y0) and (x1, y1).
func Rectangle(layer, datatype int16, x0, y0, x1, y1 float64) Polygon {
	return Polygon{
		Layer:    layer,
		Datatype: datatype,
		Points:   []Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}},
	}
}

// Placement positions a child symbol inside its parent, translated by Origin.
type Placement struct {
	Child  Handle
	Origin Point
}

// Symbol is a named node owning primitive geometry and placements of other symbols.
type Symbol struct {
	Name       string
	Polygons   []Polygon
	Placements []Placement
}

// NameSource issues unique, format-legal names. *ident.Generator implements it.
type NameSource interface {
	Next() (string, error)
}

var _ NameSource = (*ident.Generator)(nil)

// Document is a self-contained symbol universe rooted at one top-level symbol.
type Document struct {
	names      NameSource
	tracker    *collision.Tracker
	symbols    []Symbol
	top        Handle
	frozen     bool
	placements int
	polygons   int
}

// NewDocument creates an empty document that draws symbol names from names.
func NewDocument(names NameSource) *Document {
	return &Document{
		names:   names,
		tracker: collision.NewTracker(),
		symbols: make([]Symbol, 0, 64),
		top:     NoSymbol,
	}
}

// NewSymbol creates an empty symbol named by the document's name source.
func (d *Document) NewSymbol() (Handle, error) {
	if d.frozen {
		return NoSymbol, errs.ErrSymbolFrozen
	}

	name, err := d.names.Next()
	if err != nil {
		return NoSymbol, fmt.Errorf("new symbol %d: %w", len(d.symbols), err)
	}

	return d.add(name)
}

// NewNamedSymbol creates an empty symbol with an explicit name.
//
// The name must be legal for the stream format and unused in this document.
// Names containing '_' never collide with generated names.
func (d *Document) NewNamedSymbol(name string) (Handle, error) {
	if d.frozen {
		return NoSymbol, errs.ErrSymbolFrozen
	}
	if !ident.IsLegal(name) {
		return NoSymbol, fmt.Errorf("%w: %q", errs.ErrInvalidName, name)
	}

	return d.add(name)
}

func (d *Document) add(name string) (Handle, error) {
	if err := d.tracker.Track(name); err != nil {
		return NoSymbol, err
	}

	h := Handle(len(d.symbols))
	d.symbols = append(d.symbols, Symbol{Name: name})

	return h, nil
}

// AddPolygon appends primitive geometry to symbol h.
func (d *Document) AddPolygon(h Handle, p Polygon) error {
	if d.frozen {
		return errs.ErrSymbolFrozen
	}
	if !d.valid(h) {
		return fmt.Errorf("%w: handle %d", errs.ErrUnknownSymbol, h)
	}

	d.symbols[h].Polygons = append(d.symbols[h].Polygons, p)
	d.polygons++

	return nil
}

// AddPlacement places child inside parent at origin.
//
// The child must have been created before the parent; anything else returns
// errs.ErrCyclicPlacement.
func (d *Document) AddPlacement(parent, child Handle, origin Point) error {
	if d.frozen {
		return errs.ErrSymbolFrozen
	}
	if !d.valid(parent) {
		return fmt.Errorf("%w: parent handle %d", errs.ErrUnknownSymbol, parent)
	}
	if !d.valid(child) {
		return fmt.Errorf("%w: child handle %d", errs.ErrUnknownSymbol, child)
	}
	if child >= parent {
		return fmt.Errorf("%w: %s -> %s", errs.ErrCyclicPlacement, d.symbols[parent].Name, d.symbols[child].Name)
	}

	d.symbols[parent].Placements = append(d.symbols[parent].Placements, Placement{Child: child, Origin: origin})
	d.placements++

	return nil
}

// SetTop designates h as the document's top-level symbol.
func (d *Document) SetTop(h Handle) error {
	if d.frozen {
		return errs.ErrSymbolFrozen
	}
	if !d.valid(h) {
		return fmt.Errorf("%w: handle %d", errs.ErrUnknownSymbol, h)
	}
	d.top = h

	return nil
}

// Top returns the top-level symbol, or NoSymbol if none was set.
func (d *Document) Top() Handle {
	return d.top
}

// Lookup returns the symbol for h. The returned value shares its slices with
// the document and must not be modified.
func (d *Document) Lookup(h Handle) (Symbol, error) {
	if !d.valid(h) {
		return Symbol{}, fmt.Errorf("%w: handle %d", errs.ErrUnknownSymbol, h)
	}

	return d.symbols[h], nil
}

// Len returns the number of symbols in the document.
func (d *Document) Len() int {
	return len(d.symbols)
}

// PlacementCount returns the total number of placements across all symbols.
func (d *Document) PlacementCount() int {
	return d.placements
}

// PolygonCount returns the total number of polygons across all symbols.
func (d *Document) PolygonCount() int {
	return d.polygons
}

// Finalize validates the document and makes it read-only.
//
// A valid document has a top-level symbol and uniquely named symbols; the
// acyclic reference graph is guaranteed by AddPlacement.
func (d *Document) Finalize() error {
	if d.frozen {
		return nil
	}
	if d.top == NoSymbol {
		return errs.ErrNoTopSymbol
	}
	if d.tracker.Count() != len(d.symbols) {
		return fmt.Errorf("%w: %d names for %d symbols", errs.ErrDuplicateName, d.tracker.Count(), len(d.symbols))
	}
	d.frozen = true

	return nil
}

// Finalized reports whether Finalize has succeeded.
func (d *Document) Finalized() bool {
	return d.frozen
}

// Reachable returns every symbol reachable from the top-level symbol, the top
// included, in ascending handle order. Because placements always point to
// lower handles, children precede their parents.
func (d *Document) Reachable() ([]Handle, error) {
	if d.top == NoSymbol {
		return nil, errs.ErrNoTopSymbol
	}

	seen := make([]bool, len(d.symbols))
	stack := []Handle{d.top}
	seen[d.top] = true
	count := 1

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, p := range d.symbols[h].Placements {
			if !seen[p.Child] {
				seen[p.Child] = true
				count++
				stack = append(stack, p.Child)
			}
		}
	}

	out := make([]Handle, 0, count)
	for i, ok := range seen {
		if ok {
			out = append(out, Handle(i))
		}
	}

	return out, nil
}

func (d *Document) valid(h Handle) bool {
	return h >= 0 && int(h) < len(d.symbols)
}
