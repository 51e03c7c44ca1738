package gds

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/arloliu/textgds/errs"
	"github.com/arloliu/textgds/internal/options"
	"github.com/arloliu/textgds/internal/pool"
	"github.com/arloliu/textgds/layout"
)

const (
	// DefaultUnit is the size of one user unit in meters (1 µm).
	DefaultUnit = 1e-6
	// DefaultPrecision is the size of one database unit in meters (1 nm).
	DefaultPrecision = 1e-9
	// DefaultLibraryName is written in LIBNAME when none is configured.
	DefaultLibraryName = "LIB"
	// maxVertices keeps a closed boundary within one XY record.
	maxVertices = (MaxRecordSize-HeaderSize)/8 - 1
)

// DefaultTimestamp is the modification and access time of every library and
// structure unless configured otherwise.
var DefaultTimestamp = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

type encoderConfig struct {
	unit      float64
	precision float64
	libName   string
	timestamp time.Time
}

// Option configures an Encoder.
type Option = options.Option[*encoderConfig]

// WithUnits sets the user unit and database unit, both in meters.
// Coordinates are multiplied by unit/precision and rounded to integers.
func WithUnits(unit, precision float64) Option {
	return options.New(func(c *encoderConfig) error {
		if !(unit > 0) || !(precision > 0) || math.IsInf(unit, 0) || math.IsInf(precision, 0) {
			return fmt.Errorf("%w: unit %v, precision %v", errs.ErrInvalidUnits, unit, precision)
		}
		if _, ok := EncodeReal8(precision / unit); !ok {
			return fmt.Errorf("%w: ratio %v not representable", errs.ErrInvalidUnits, precision/unit)
		}
		if _, ok := EncodeReal8(precision); !ok {
			return fmt.Errorf("%w: precision %v not representable", errs.ErrInvalidUnits, precision)
		}
		c.unit = unit
		c.precision = precision

		return nil
	})
}

// WithLibraryName sets the LIBNAME record.
func WithLibraryName(name string) Option {
	return options.New(func(c *encoderConfig) error {
		if name == "" {
			return fmt.Errorf("%w: empty library name", errs.ErrInvalidName)
		}
		c.libName = name

		return nil
	})
}

// WithTimestamp sets the time written in BGNLIB and BGNSTR records.
func WithTimestamp(ts time.Time) Option {
	return options.NoError(func(c *encoderConfig) {
		c.timestamp = ts
	})
}

// Stats summarizes one encoded document.
type Stats struct {
	Structures int
	Boundaries int
	References int
	Bytes      int64
}

// Encoder serializes layout documents. It holds no per-document state and is
// safe for concurrent use.
type Encoder struct {
	cfg   encoderConfig
	scale float64 // database units per user unit
}

// NewEncoder creates an encoder.
func NewEncoder(opts ...Option) (*Encoder, error) {
	cfg := encoderConfig{
		unit:      DefaultUnit,
		precision: DefaultPrecision,
		libName:   DefaultLibraryName,
		timestamp: DefaultTimestamp,
	}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	return &Encoder{cfg: cfg, scale: cfg.unit / cfg.precision}, nil
}

// Unit returns the configured user unit in meters.
func (e *Encoder) Unit() float64 {
	return e.cfg.unit
}

// Precision returns the configured database unit in meters.
func (e *Encoder) Precision() float64 {
	return e.cfg.precision
}

// Encode writes doc as a complete stream to w.
//
// Only the top-level symbol and the symbols reachable from it are written,
// in ascending handle order. The stream is assembled in memory first, so
// nothing is written to w when encoding fails.
//
// Parameters:
//   - w: destination
//   - doc: document with a top-level symbol
//
// Returns:
//   - Stats: counts of the written stream
//   - error: errs.ErrNoTopSymbol, errs.ErrCoordinateOverflow, or the write error
func (e *Encoder) Encode(w io.Writer, doc *layout.Document) (Stats, error) {
	var st Stats

	handles, err := doc.Reachable()
	if err != nil {
		return st, err
	}

	out := pool.GetPartBuffer()
	defer pool.PutPartBuffer(out)

	e.writeLibraryHeader(out)

	rec := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(rec)

	for _, h := range handles {
		sym, err := doc.Lookup(h)
		if err != nil {
			return st, err
		}

		rec.Reset()
		if err := e.writeStructure(rec, doc, sym, &st); err != nil {
			return st, err
		}
		if _, err := out.Write(rec.Bytes()); err != nil {
			return st, err
		}
		st.Structures++
	}
	writeEmpty(out, RecEndLib)

	n, err := out.WriteTo(w)
	st.Bytes = n
	if err != nil {
		return st, err
	}

	return st, nil
}

func (e *Encoder) writeLibraryHeader(b *pool.ByteBuffer) {
	writeInt16s(b, RecHeader, StreamVersion)
	writeInt16s(b, RecBgnLib, e.dates()...)
	writeString(b, RecLibName, e.cfg.libName)

	// Ratios are validated by WithUnits.
	userBits, _ := EncodeReal8(e.cfg.precision / e.cfg.unit)
	dbBits, _ := EncodeReal8(e.cfg.precision)
	writeHeader(b, RecUnits, 16)
	b.B = binary.BigEndian.AppendUint64(b.B, userBits)
	b.B = binary.BigEndian.AppendUint64(b.B, dbBits)
}

func (e *Encoder) writeStructure(b *pool.ByteBuffer, doc *layout.Document, sym layout.Symbol, st *Stats) error {
	writeInt16s(b, RecBgnStr, e.dates()...)
	writeString(b, RecStrName, sym.Name)

	for _, p := range sym.Polygons {
		if len(p.Points) == 0 {
			continue
		}
		if len(p.Points) > maxVertices {
			return fmt.Errorf("%w: polygon in %s has %d vertices (max %d)", errs.ErrInvalidRecord, sym.Name, len(p.Points), maxVertices)
		}

		writeEmpty(b, RecBoundary)
		writeInt16s(b, RecLayer, p.Layer)
		writeInt16s(b, RecDatatype, p.Datatype)
		writeHeader(b, RecXY, (len(p.Points)+1)*8)
		for _, pt := range p.Points {
			if err := e.appendPoint(b, sym.Name, pt); err != nil {
				return err
			}
		}
		if err := e.appendPoint(b, sym.Name, p.Points[0]); err != nil {
			return err
		}
		writeEmpty(b, RecEndEl)
		st.Boundaries++
	}

	for _, pl := range sym.Placements {
		child, err := doc.Lookup(pl.Child)
		if err != nil {
			return err
		}

		writeEmpty(b, RecSRef)
		writeString(b, RecSName, child.Name)
		writeHeader(b, RecXY, 8)
		if err := e.appendPoint(b, sym.Name, pl.Origin); err != nil {
			return err
		}
		writeEmpty(b, RecEndEl)
		st.References++
	}
	writeEmpty(b, RecEndStr)

	return nil
}

func (e *Encoder) appendPoint(b *pool.ByteBuffer, owner string, p layout.Point) error {
	x, err := e.dbu(p.X)
	if err != nil {
		return fmt.Errorf("%s: x %v: %w", owner, p.X, err)
	}
	y, err := e.dbu(p.Y)
	if err != nil {
		return fmt.Errorf("%s: y %v: %w", owner, p.Y, err)
	}
	b.B = binary.BigEndian.AppendUint32(b.B, uint32(x))
	b.B = binary.BigEndian.AppendUint32(b.B, uint32(y))

	return nil
}

// dbu converts a user-unit coordinate to database units.
func (e *Encoder) dbu(v float64) (int32, error) {
	d := math.Round(v * e.scale)
	if math.IsNaN(d) || d < math.MinInt32 || d > math.MaxInt32 {
		return 0, errs.ErrCoordinateOverflow
	}

	return int32(d), nil
}

// dates returns the modification and access time fields of BGNLIB and BGNSTR.
func (e *Encoder) dates() []int16 {
	t := e.cfg.timestamp.UTC()
	one := []int16{
		int16(t.Year()), int16(t.Month()), int16(t.Day()),
		int16(t.Hour()), int16(t.Minute()), int16(t.Second()),
	}

	return append(one, one...)
}

func writeHeader(b *pool.ByteBuffer, t RecordType, dataLen int) {
	b.B = binary.BigEndian.AppendUint16(b.B, uint16(HeaderSize+dataLen))
	b.B = binary.BigEndian.AppendUint16(b.B, uint16(t))
}

func writeEmpty(b *pool.ByteBuffer, t RecordType) {
	writeHeader(b, t, 0)
}

func writeInt16s(b *pool.ByteBuffer, t RecordType, vals ...int16) {
	writeHeader(b, t, len(vals)*2)
	for _, v := range vals {
		b.B = binary.BigEndian.AppendUint16(b.B, uint16(v))
	}
}

// writeString writes s padded with a NUL to an even length.
func writeString(b *pool.ByteBuffer, t RecordType, s string) {
	n := len(s) + len(s)%2
	writeHeader(b, t, n)
	b.B = append(b.B, s...)
	if len(s)%2 != 0 {
		b.B = append(b.B, 0)
	}
}
