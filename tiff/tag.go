package tiff

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// DataType is the TIFF type code of an entry's value.
type DataType uint16

const (
	DTByte      DataType = 1
	DTAscii     DataType = 2
	DTShort     DataType = 3
	DTLong      DataType = 4
	DTRational  DataType = 5
	DTSByte     DataType = 6
	DTUndefined DataType = 7
	DTSShort    DataType = 8
	DTSLong     DataType = 9
	DTSRational DataType = 10
	DTFloat     DataType = 11
	DTDouble    DataType = 12
)

// typeSize specifies the size in bytes of each type.
var typeSize = map[DataType]uint32{
	DTByte:      1,
	DTAscii:     1,
	DTShort:     2,
	DTLong:      4,
	DTRational:  8,
	DTSByte:     1,
	DTUndefined: 1,
	DTSShort:    2,
	DTSLong:     4,
	DTSRational: 8,
	DTFloat:     4,
	DTDouble:    8,
}

var typeNames = map[DataType]string{
	DTByte:      "Byte",
	DTAscii:     "ASCII",
	DTShort:     "Short",
	DTLong:      "Long",
	DTRational:  "Rational",
	DTSByte:     "SByte",
	DTUndefined: "Undefined",
	DTSShort:    "SShort",
	DTSLong:     "SLong",
	DTSRational: "SRational",
	DTFloat:     "Float",
	DTDouble:    "Double",
}

// Size returns the size in bytes of a single component of type dt, or 0 if
// dt is not a known type.
func (dt DataType) Size() uint32 { return typeSize[dt] }

// Valid reports whether dt is one of the twelve TIFF 6.0 types.
func (dt DataType) Valid() bool { return typeSize[dt] != 0 }

// IsSigned reports whether dt is one of the signed integer or rational types.
func (dt DataType) IsSigned() bool {
	return dt == DTSByte || dt == DTSShort || dt == DTSLong || dt == DTSRational
}

func (dt DataType) String() string {
	if s, ok := typeNames[dt]; ok {
		return s
	}
	return fmt.Sprintf("DataType(%d)", uint16(dt))
}

// TypeCategory specifies the category of a type.
type TypeCategory int

// Type categories.
const (
	IntVal TypeCategory = iota
	FloatVal
	RatVal
	StringVal
	UndefVal
	OtherVal
)

// Category returns which accessor retrieves the properly typed value of
// an entry of type dt.
func (dt DataType) Category() TypeCategory {
	switch dt {
	case DTByte, DTShort, DTLong, DTSByte, DTSShort, DTSLong:
		return IntVal
	case DTRational, DTSRational:
		return RatVal
	case DTFloat, DTDouble:
		return FloatVal
	case DTAscii:
		return StringVal
	case DTUndefined:
		return UndefVal
	}
	return OtherVal
}

var (
	ErrEntryTruncated  = errors.New("tiff: IFD entry extends past end of buffer")
	ErrBadType         = errors.New("tiff: unknown tag type")
	ErrZeroCount       = errors.New("tiff: tag has no components")
	ErrValueOutOfRange = errors.New("tiff: tag value offset out of range")
)

// Entry reflects the parsed content of a tiff IFD entry.
type Entry struct {
	// Tag is the 2-byte tiff tag identifier.
	Tag uint16
	// Type indicates the value's format.
	Type DataType
	// Count is the number of components of type Type in the value.
	Count uint32
	// Val holds the bytes that represent the value. It aliases the buffer
	// the entry was decoded from.
	Val []byte
	// ValOffset holds the byte offset of the value w.r.t. the beginning of
	// the buffer. Zero if the value fit inside the offset field.
	ValOffset uint32
}

// DecodeEntry parses the 12-byte IFD entry at pos in buf. The returned entry
// has Tag, Type and Count filled in even when an error is returned, as long as
// the fixed part of the entry lies within buf.
func DecodeEntry(buf []byte, pos uint32, order binary.ByteOrder) (Entry, error) {
	var e Entry
	size := uint64(len(buf))
	if uint64(pos)+EntrySize > size {
		return e, ErrEntryTruncated
	}

	e.Tag = order.Uint16(buf[pos:])
	e.Type = DataType(order.Uint16(buf[pos+2:]))
	e.Count = order.Uint32(buf[pos+4:])

	if !e.Type.Valid() {
		return e, errors.Wrapf(ErrBadType, "type %d", uint16(e.Type))
	}
	if e.Count == 0 {
		return e, ErrZeroCount
	}

	valLen := uint64(e.Type.Size()) * uint64(e.Count)
	if valLen <= 4 {
		e.Val = buf[pos+8 : uint64(pos)+8+valLen]
		return e, nil
	}

	e.ValOffset = order.Uint32(buf[pos+8:])
	if uint64(e.ValOffset)+valLen > size {
		return e, errors.Wrapf(ErrValueOutOfRange, "offset %d, length %d, buffer %d", e.ValOffset, valLen, size)
	}
	e.Val = buf[e.ValOffset : uint64(e.ValOffset)+valLen]
	return e, nil
}

// Ints decodes an integer-typed entry's components. It returns nil if the
// entry is not of an integer type.
func (e Entry) Ints(order binary.ByteOrder) []int64 {
	if e.Type.Category() != IntVal {
		return nil
	}
	sz := e.Type.Size()
	vals := make([]int64, e.Count)
	for i := range vals {
		b := e.Val[uint32(i)*sz:]
		switch e.Type {
		case DTByte:
			vals[i] = int64(b[0])
		case DTSByte:
			vals[i] = int64(int8(b[0]))
		case DTShort:
			vals[i] = int64(order.Uint16(b))
		case DTSShort:
			vals[i] = int64(int16(order.Uint16(b)))
		case DTLong:
			vals[i] = int64(order.Uint32(b))
		case DTSLong:
			vals[i] = int64(int32(order.Uint32(b)))
		}
	}
	return vals
}

// Rationals decodes a rational-typed entry's components. It returns nil if
// the entry is not of a rational type.
func (e Entry) Rationals(order binary.ByteOrder) []Rational {
	if e.Type.Category() != RatVal {
		return nil
	}
	vals := make([]Rational, e.Count)
	for i := range vals {
		b := e.Val[i*8:]
		n, d := order.Uint32(b), order.Uint32(b[4:])
		if e.Type == DTSRational {
			vals[i] = NewSignedRational(int32(n), int32(d))
		} else {
			vals[i] = NewRational(n, d)
		}
	}
	return vals
}

// Floats decodes a Float or Double entry's components. It returns nil if the
// entry is not of a floating point type.
func (e Entry) Floats(order binary.ByteOrder) []float64 {
	if e.Type.Category() != FloatVal {
		return nil
	}
	vals := make([]float64, e.Count)
	for i := range vals {
		if e.Type == DTFloat {
			vals[i] = float64(math.Float32frombits(order.Uint32(e.Val[i*4:])))
		} else {
			vals[i] = math.Float64frombits(order.Uint64(e.Val[i*8:]))
		}
	}
	return vals
}

// StringVal returns an ASCII entry's value with trailing NULs removed.
func (e Entry) StringVal() string {
	v := e.Val
	for len(v) > 0 && v[len(v)-1] == 0 {
		v = v[:len(v)-1]
	}
	return string(v)
}

// PutEntry writes the fixed part of an entry at pos in buf. val must hold
// either the inline value (at most 4 bytes) or the encoded offset.
func PutEntry(buf []byte, pos uint32, order binary.ByteOrder, tag uint16, dt DataType, count uint32, val []byte) {
	order.PutUint16(buf[pos:], tag)
	order.PutUint16(buf[pos+2:], uint16(dt))
	order.PutUint32(buf[pos+4:], count)
	field := buf[pos+8 : pos+12]
	for i := range field {
		field[i] = 0
	}
	copy(field, val)
}
