package gds

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/textgds/errs"
	"github.com/arloliu/textgds/ident"
	"github.com/arloliu/textgds/layout"
)

// sampleDocument builds pixel <- glyph <- TOP_CELL plus one unreferenced symbol.
func sampleDocument(t *testing.T) *layout.Document {
	t.Helper()

	doc := layout.NewDocument(ident.New())
	pixel, err := doc.NewSymbol()
	require.NoError(t, err)
	require.NoError(t, doc.AddPolygon(pixel, layout.Rectangle(1, 0, 0, 0, 1, 1)))

	glyph, err := doc.NewSymbol()
	require.NoError(t, err)
	require.NoError(t, doc.AddPlacement(glyph, pixel, layout.Point{X: 0, Y: 0}))

	orphan, err := doc.NewSymbol()
	require.NoError(t, err)
	require.NoError(t, doc.AddPlacement(orphan, pixel, layout.Point{X: 9, Y: 9}))

	top, err := doc.NewNamedSymbol("TOP_CELL")
	require.NoError(t, err)
	require.NoError(t, doc.AddPlacement(top, glyph, layout.Point{X: 0, Y: 0}))
	require.NoError(t, doc.AddPlacement(top, glyph, layout.Point{X: 1.5, Y: -2}))
	require.NoError(t, doc.SetTop(top))
	require.NoError(t, doc.Finalize())

	return doc
}

func TestReal8(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		bits uint64
	}{
		{"zero", 0, 0},
		{"one", 1, 0x4110000000000000},
		{"half", 0.5, 0x4080000000000000},
		{"minus one", -1, 0xC110000000000000},
		{"sixteen", 16, 0x4210000000000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bits, ok := EncodeReal8(tt.v)
			require.True(t, ok)
			require.Equal(t, tt.bits, bits)
			require.Equal(t, tt.v, DecodeReal8(bits))
		})
	}

	for _, v := range []float64{1e-3, 1e-9, 0.25e-6, 123456.789, -3.75e-12} {
		bits, ok := EncodeReal8(v)
		require.True(t, ok)
		require.InEpsilon(t, v, DecodeReal8(bits), 1e-14)
	}

	for _, v := range []float64{math.NaN(), math.Inf(1), 1e100, 1e-100} {
		_, ok := EncodeReal8(v)
		require.False(t, ok, "%v", v)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)

	var buf bytes.Buffer
	st, err := enc.Encode(&buf, sampleDocument(t))
	require.NoError(t, err)
	require.Equal(t, Stats{Structures: 3, Boundaries: 1, References: 3, Bytes: int64(buf.Len())}, st)

	// HEADER, version 600.
	require.Equal(t, []byte{0x00, 0x06, 0x00, 0x02, 0x02, 0x58}, buf.Bytes()[:6])

	sum, err := Inspect(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, int16(StreamVersion), sum.Version)
	require.Equal(t, DefaultLibraryName, sum.Library)
	require.InEpsilon(t, 1e-3, sum.UserUnit, 1e-12)
	require.InEpsilon(t, 1e-9, sum.DBUnit, 1e-12)
	require.Equal(t, []string{"A", "B", "TOP_CELL"}, sum.Structures)
	require.Equal(t, []string{"TOP_CELL"}, sum.Top)
	require.Equal(t, 1, sum.Boundaries)
	require.Equal(t, 3, sum.References)
	require.Equal(t, st.Bytes, sum.Bytes)
}

func TestEncode_Coordinates(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = enc.Encode(&buf, sampleDocument(t))
	require.NoError(t, err)

	var xys [][]int32
	rd := NewReader(&buf)
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if rec.Type == RecXY {
			v, err := rec.Int32s()
			require.NoError(t, err)
			xys = append(xys, v)
		}
	}

	// Closed pixel boundary, glyph -> pixel, then the two top -> glyph references.
	require.Equal(t, [][]int32{
		{0, 0, 1000, 0, 1000, 1000, 0, 1000, 0, 0},
		{0, 0},
		{0, 0},
		{1500, -2000},
	}, xys)
}

func TestEncode_Deterministic(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)

	var a, b bytes.Buffer
	_, err = enc.Encode(&a, sampleDocument(t))
	require.NoError(t, err)
	_, err = enc.Encode(&b, sampleDocument(t))
	require.NoError(t, err)

	require.Equal(t, a.Bytes(), b.Bytes())
}

func TestEncode_Options(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 6, 7, 8, 0, time.UTC)
	enc, err := NewEncoder(WithUnits(1e-3, 1e-6), WithLibraryName("ABC"), WithTimestamp(ts))
	require.NoError(t, err)
	require.Equal(t, 1e-3, enc.Unit())
	require.Equal(t, 1e-6, enc.Precision())

	var buf bytes.Buffer
	_, err = enc.Encode(&buf, sampleDocument(t))
	require.NoError(t, err)

	// Odd-length names are padded with NUL.
	require.True(t, bytes.Contains(buf.Bytes(), []byte{0x00, 0x08, 0x02, 0x06, 'A', 'B', 'C', 0x00}))

	rd := NewReader(bytes.NewReader(buf.Bytes()))
	for {
		rec, err := rd.Next()
		require.NoError(t, err)
		if rec.Type == RecBgnLib {
			v, err := rec.Int16s()
			require.NoError(t, err)
			require.Equal(t, []int16{2024, 3, 5, 6, 7, 8, 2024, 3, 5, 6, 7, 8}, v)

			break
		}
	}

	_, err = NewEncoder(WithUnits(0, 1e-9))
	require.ErrorIs(t, err, errs.ErrInvalidUnits)
	_, err = NewEncoder(WithUnits(1e-6, -1))
	require.ErrorIs(t, err, errs.ErrInvalidUnits)
	_, err = NewEncoder(WithLibraryName(""))
	require.ErrorIs(t, err, errs.ErrInvalidName)
}

func TestEncode_CoordinateOverflow(t *testing.T) {
	doc := layout.NewDocument(ident.New())
	g, err := doc.NewSymbol()
	require.NoError(t, err)
	top, err := doc.NewNamedSymbol("TOP_CELL")
	require.NoError(t, err)
	require.NoError(t, doc.AddPlacement(top, g, layout.Point{X: 0, Y: -3e6}))
	require.NoError(t, doc.SetTop(top))

	enc, err := NewEncoder()
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = enc.Encode(&buf, doc)
	require.ErrorIs(t, err, errs.ErrCoordinateOverflow)
	require.Contains(t, err.Error(), "TOP_CELL")
	require.Zero(t, buf.Len())
}

func TestEncode_NoTop(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)

	_, err = enc.Encode(io.Discard, layout.NewDocument(ident.New()))
	require.ErrorIs(t, err, errs.ErrNoTopSymbol)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestEncode_WriteError(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)

	_, err = enc.Encode(failingWriter{}, sampleDocument(t))
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestInspect_Malformed(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = enc.Encode(&buf, sampleDocument(t))
	require.NoError(t, err)
	data := buf.Bytes()

	t.Run("truncated", func(t *testing.T) {
		_, err := Inspect(bytes.NewReader(data[:len(data)-3]))
		require.ErrorIs(t, err, errs.ErrInvalidRecord)
	})

	t.Run("missing ENDLIB", func(t *testing.T) {
		_, err := Inspect(bytes.NewReader(data[:len(data)-4]))
		require.ErrorIs(t, err, errs.ErrInvalidRecord)
	})

	t.Run("odd record length", func(t *testing.T) {
		_, err := Inspect(bytes.NewReader([]byte{0x00, 0x05, 0x00, 0x02, 0x02}))
		require.ErrorIs(t, err, errs.ErrInvalidRecord)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Inspect(bytes.NewReader(nil))
		require.ErrorIs(t, err, errs.ErrInvalidRecord)
	})
}

func TestRecordType_String(t *testing.T) {
	require.Equal(t, "SREF", RecSRef.String())
	require.Equal(t, "RECORD(0x2A02)", RecordType(0x2A02).String())
	require.Equal(t, DataString, RecSName.DataType())
}
