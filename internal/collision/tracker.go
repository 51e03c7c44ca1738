package collision

import (
	"fmt"

	"github.com/arloliu/textgds/errs"
	"github.com/arloliu/textgds/internal/hash"
)

// Tracker tracks the symbol names used in one document and rejects duplicates.
//
// Names are keyed by their xxHash64. Distinct names that share a hash are kept
// in a small overflow list so they are never mistaken for duplicates.
type Tracker struct {
	names     map[uint64]string   // hash → first name seen with that hash
	overflow  map[uint64][]string // hash → further distinct names (true hash collisions)
	collision bool
	count     int
}

// NewTracker creates a new name tracker.
func NewTracker() *Tracker {
	return &Tracker{
		names: make(map[uint64]string),
	}
}

// Track records name. It returns errs.ErrInvalidName for an empty name and
// errs.ErrDuplicateName if the name was already tracked.
func (t *Tracker) Track(name string) error {
	if name == "" {
		return errs.ErrInvalidName
	}

	id := hash.ID(name)
	existing, ok := t.names[id]
	if !ok {
		t.names[id] = name
		t.count++

		return nil
	}

	if existing == name {
		return fmt.Errorf("%w: %s", errs.ErrDuplicateName, name)
	}

	for _, other := range t.overflow[id] {
		if other == name {
			return fmt.Errorf("%w: %s", errs.ErrDuplicateName, name)
		}
	}

	// Different names, same hash
	if t.overflow == nil {
		t.overflow = make(map[uint64][]string)
	}
	t.overflow[id] = append(t.overflow[id], name)
	t.collision = true
	t.count++

	return nil
}

// Contains reports whether name has been tracked.
func (t *Tracker) Contains(name string) bool {
	id := hash.ID(name)
	if existing, ok := t.names[id]; ok && existing == name {
		return true
	}
	for _, other := range t.overflow[id] {
		if other == name {
			return true
		}
	}

	return false
}

// HasCollision returns true if two distinct names with the same hash were tracked.
func (t *Tracker) HasCollision() bool {
	return t.collision
}

// Count returns the number of tracked names.
func (t *Tracker) Count() int {
	return t.count
}

