package gds

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/arloliu/textgds/errs"
)

// RecordType is the combined record type and data type of a record header.
type RecordType uint16

// Record types used by this package.
const (
	RecHeader   RecordType = 0x0002
	RecBgnLib   RecordType = 0x0102
	RecLibName  RecordType = 0x0206
	RecUnits    RecordType = 0x0305
	RecEndLib   RecordType = 0x0400
	RecBgnStr   RecordType = 0x0502
	RecStrName  RecordType = 0x0606
	RecEndStr   RecordType = 0x0700
	RecBoundary RecordType = 0x0800
	RecSRef     RecordType = 0x0A00
	RecLayer    RecordType = 0x0D02
	RecDatatype RecordType = 0x0E02
	RecXY       RecordType = 0x1003
	RecEndEl    RecordType = 0x1100
	RecSName    RecordType = 0x1206
)

// Data types of the record header's low byte.
const (
	DataNone   uint8 = 0x00
	DataInt16  uint8 = 0x02
	DataInt32  uint8 = 0x03
	DataReal8  uint8 = 0x05
	DataString uint8 = 0x06
)

const (
	// HeaderSize is the size of a record header.
	HeaderSize = 4
	// MaxRecordSize is the largest encodable record, header included.
	MaxRecordSize = math.MaxUint16 &^ 1
	// StreamVersion is written in the HEADER record.
	StreamVersion = 600
)

var recordNames = map[RecordType]string{
	RecHeader:   "HEADER",
	RecBgnLib:   "BGNLIB",
	RecLibName:  "LIBNAME",
	RecUnits:    "UNITS",
	RecEndLib:   "ENDLIB",
	RecBgnStr:   "BGNSTR",
	RecStrName:  "STRNAME",
	RecEndStr:   "ENDSTR",
	RecBoundary: "BOUNDARY",
	RecSRef:     "SREF",
	RecLayer:    "LAYER",
	RecDatatype: "DATATYPE",
	RecXY:       "XY",
	RecEndEl:    "ENDEL",
	RecSName:    "SNAME",
}

// DataType returns the low byte of the record type.
func (t RecordType) DataType() uint8 {
	return uint8(t)
}

func (t RecordType) String() string {
	if name, ok := recordNames[t]; ok {
		return name
	}

	return fmt.Sprintf("RECORD(0x%04X)", uint16(t))
}

// Record is one decoded record. Data excludes the header.
type Record struct {
	Type RecordType
	Data []byte
}

// Int16s decodes the payload as big-endian 2-byte integers.
func (r Record) Int16s() ([]int16, error) {
	if r.Type.DataType() != DataInt16 || len(r.Data)%2 != 0 {
		return nil, fmt.Errorf("%w: %s is not an int16 record", errs.ErrInvalidRecord, r.Type)
	}

	out := make([]int16, len(r.Data)/2)
	for i := range out {
		out[i] = int16(binary.BigEndian.Uint16(r.Data[i*2:]))
	}

	return out, nil
}

// Int32s decodes the payload as big-endian 4-byte integers.
func (r Record) Int32s() ([]int32, error) {
	if r.Type.DataType() != DataInt32 || len(r.Data)%4 != 0 {
		return nil, fmt.Errorf("%w: %s is not an int32 record", errs.ErrInvalidRecord, r.Type)
	}

	out := make([]int32, len(r.Data)/4)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(r.Data[i*4:]))
	}

	return out, nil
}

// Reals decodes the payload as 8-byte excess-64 reals.
func (r Record) Reals() ([]float64, error) {
	if r.Type.DataType() != DataReal8 || len(r.Data)%8 != 0 {
		return nil, fmt.Errorf("%w: %s is not a real record", errs.ErrInvalidRecord, r.Type)
	}

	out := make([]float64, len(r.Data)/8)
	for i := range out {
		out[i] = DecodeReal8(binary.BigEndian.Uint64(r.Data[i*8:]))
	}

	return out, nil
}

// Text decodes the payload as ASCII, dropping the NUL padding.
func (r Record) Text() string {
	return strings.TrimRight(string(r.Data), "\x00")
}

// EncodeReal8 converts v to the 8-byte excess-64 base-16 real format:
// one sign bit, a 7-bit exponent biased by 64 and a 56-bit mantissa.
// It reports false when v is not finite or its magnitude is out of range.
func EncodeReal8(v float64) (uint64, bool) {
	if v == 0 {
		return 0, true
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	var sign uint64
	if v < 0 {
		sign = 1 << 63
		v = -v
	}

	exp := 0
	for v >= 1 {
		v /= 16
		exp++
	}
	for v < 1.0/16 {
		v *= 16
		exp--
	}

	mant := uint64(math.Round(v * (1 << 56)))
	if mant >= 1<<56 {
		mant >>= 4
		exp++
	}
	if exp < -64 || exp > 63 {
		return 0, false
	}

	return sign | uint64(exp+64)<<56 | mant, true
}

// DecodeReal8 converts an 8-byte excess-64 real to float64.
func DecodeReal8(bits uint64) float64 {
	mant := bits & (1<<56 - 1)
	if mant == 0 {
		return 0
	}
	exp := int((bits>>56)&0x7f) - 64
	v := float64(mant) / (1 << 56) * math.Pow(16, float64(exp))
	if bits&(1<<63) != 0 {
		v = -v
	}

	return v
}
