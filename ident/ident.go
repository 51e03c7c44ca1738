// Package ident generates short, format-legal, unique symbol names.
//
// Names are issued shortest first and in ascending order within each length:
//
//	A, B, ..., Z, A0, A1, ..., AZ, B0, ..., ZZ, A00, A01, ...
//
// The leading character is always an uppercase letter and trailing characters
// are drawn from 0-9 and A-Z, so a name never begins with a digit. When a length
// class is used up the generator grows to the next length automatically.
//
// A Generator is owned by exactly one document. It is not safe for concurrent use.
package ident

import (
	"github.com/arloliu/textgds/errs"
)

const (
	leadAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	tailAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Generator issues unique names in a deterministic sequence.
type Generator struct {
	digits    []uint8 // per-position alphabet index of the next name
	buf       []byte
	issued    uint64
	maxLength int // 0 means unbounded
	exhausted bool
}

// New returns a generator whose first name is "A" and which never runs out of names.
func New() *Generator {
	return &Generator{digits: []uint8{0}}
}

// NewWithMaxLength returns a generator that stops with an
// *errs.IdentifierExhaustionError once every name of at most maxLength
// characters has been issued. A maxLength <= 0 means unbounded.
func NewWithMaxLength(maxLength int) *Generator {
	g := New()
	if maxLength > 0 {
		g.maxLength = maxLength
	}

	return g
}

// Next returns the next name in the sequence.
func (g *Generator) Next() (string, error) {
	if g.exhausted {
		return "", &errs.IdentifierExhaustionError{Issued: g.issued, MaxLength: g.maxLength}
	}

	g.buf = g.buf[:0]
	g.buf = append(g.buf, leadAlphabet[g.digits[0]])
	for _, d := range g.digits[1:] {
		g.buf = append(g.buf, tailAlphabet[d])
	}
	name := string(g.buf)

	g.issued++
	g.advance()

	return name, nil
}

// advance moves the state to the following name, growing the length on carry.
func (g *Generator) advance() {
	for i := len(g.digits) - 1; i >= 0; i-- {
		limit := uint8(len(tailAlphabet) - 1)
		if i == 0 {
			limit = uint8(len(leadAlphabet) - 1)
		}

		if g.digits[i] < limit {
			g.digits[i]++
			return
		}
		g.digits[i] = 0
	}

	next := len(g.digits) + 1
	if g.maxLength > 0 && next > g.maxLength {
		g.exhausted = true
		return
	}
	g.digits = make([]uint8, next)
}

// Issued returns how many names have been issued since creation or the last Reset.
func (g *Generator) Issued() uint64 {
	return g.issued
}

// Reset restarts the sequence at "A".
func (g *Generator) Reset() {
	g.digits = g.digits[:1]
	g.digits[0] = 0
	g.issued = 0
	g.exhausted = false
}

// Capacity returns the number of distinct names of exactly the given length.
// It saturates at the maximum uint64 value for very long lengths.
func Capacity(length int) uint64 {
	if length <= 0 {
		return 0
	}

	n := uint64(len(leadAlphabet))
	for range length - 1 {
		if n > ^uint64(0)/uint64(len(tailAlphabet)) {
			return ^uint64(0)
		}
		n *= uint64(len(tailAlphabet))
	}

	return n
}

// IsLegal reports whether name is a legal symbol name for the layout stream format:
// non-empty, not starting with a digit, and made only of letters, digits, '_', '?' and '$'.
func IsLegal(name string) bool {
	if name == "" {
		return false
	}
	if name[0] >= '0' && name[0] <= '9' {
		return false
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '_', c == '?', c == '$':
		default:
			return false
		}
	}

	return true
}
