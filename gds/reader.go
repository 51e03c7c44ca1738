package gds

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/arloliu/textgds/errs"
)

// Reader decodes records from a stream.
type Reader struct {
	r      *bufio.Reader
	header [HeaderSize]byte
	offset int64
}

// NewReader creates a record reader on r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next record. It returns io.EOF at a clean end of input
// and errs.ErrInvalidRecord for truncated or malformed records. The returned
// Data is owned by the caller.
func (r *Reader) Next() (Record, error) {
	if _, err := io.ReadFull(r.r, r.header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}

		return Record{}, fmt.Errorf("%w: truncated header at offset %d", errs.ErrInvalidRecord, r.offset)
	}

	size := int(binary.BigEndian.Uint16(r.header[0:2]))
	typ := RecordType(binary.BigEndian.Uint16(r.header[2:4]))
	if size < HeaderSize || size%2 != 0 {
		return Record{}, fmt.Errorf("%w: %s has length %d at offset %d", errs.ErrInvalidRecord, typ, size, r.offset)
	}

	data := make([]byte, size-HeaderSize)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return Record{}, fmt.Errorf("%w: truncated %s at offset %d", errs.ErrInvalidRecord, typ, r.offset)
	}
	r.offset += int64(size)

	return Record{Type: typ, Data: data}, nil
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Summary describes a decoded stream.
type Summary struct {
	Version    int16
	Library    string
	UserUnit   float64 // database unit in user units
	DBUnit     float64 // database unit in meters
	Structures []string
	Top        []string // structures not referenced by any other structure
	Boundaries int
	References int
	Bytes      int64
}

// Inspect reads a whole stream and summarizes it.
//
// It checks record order loosely: structures must be closed, references must
// name structures defined earlier, and the stream must end with ENDLIB.
func Inspect(r io.Reader) (Summary, error) {
	var s Summary

	rd := NewReader(r)
	defined := make(map[string]bool)
	referenced := make(map[string]bool)
	current := ""
	inStructure := false
	ended := false

	for !ended {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return s, fmt.Errorf("%w: missing ENDLIB", errs.ErrInvalidRecord)
		}
		if err != nil {
			return s, err
		}

		switch rec.Type {
		case RecHeader:
			v, err := rec.Int16s()
			if err != nil || len(v) != 1 {
				return s, fmt.Errorf("%w: bad HEADER", errs.ErrInvalidRecord)
			}
			s.Version = v[0]
		case RecLibName:
			s.Library = rec.Text()
		case RecUnits:
			u, err := rec.Reals()
			if err != nil || len(u) != 2 {
				return s, fmt.Errorf("%w: bad UNITS", errs.ErrInvalidRecord)
			}
			s.UserUnit, s.DBUnit = u[0], u[1]
		case RecBgnStr:
			if inStructure {
				return s, fmt.Errorf("%w: nested BGNSTR in %s", errs.ErrInvalidRecord, current)
			}
			inStructure = true
			current = ""
		case RecStrName:
			current = rec.Text()
			if defined[current] {
				return s, fmt.Errorf("%w: %q", errs.ErrDuplicateName, current)
			}
			defined[current] = true
			s.Structures = append(s.Structures, current)
		case RecEndStr:
			if !inStructure {
				return s, fmt.Errorf("%w: ENDSTR outside structure", errs.ErrInvalidRecord)
			}
			inStructure = false
		case RecBoundary:
			s.Boundaries++
		case RecSRef:
			s.References++
		case RecSName:
			name := rec.Text()
			if !defined[name] || name == current {
				return s, fmt.Errorf("%w: %s references %q before its definition", errs.ErrInvalidRecord, current, name)
			}
			referenced[name] = true
		case RecEndLib:
			if inStructure {
				return s, fmt.Errorf("%w: ENDLIB inside structure %s", errs.ErrInvalidRecord, current)
			}
			ended = true
		}
	}
	s.Bytes = rd.Offset()

	for _, name := range s.Structures {
		if !referenced[name] {
			s.Top = append(s.Top, name)
		}
	}
	slices.Sort(s.Top)

	return s, nil
}
