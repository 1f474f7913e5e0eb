package exif

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/exifprofile/tiff"
)

var (
	// ErrUnsupportedValue is returned when a Go value has no EXIF encoding.
	ErrUnsupportedValue = errors.New("exif: unsupported value")
	// ErrReservedTag is returned when a structural tag is used as a value.
	ErrReservedTag = errors.New("exif: reserved tag")
	// ErrTypeMismatch is returned by Value.Set when the new value cannot be
	// encoded with any type the tag accepts.
	ErrTypeMismatch = errors.New("exif: value does not match tag type")
	// ErrWrongCategory is returned by accessors called on a value of
	// another category (e.g. Int on a text value).
	ErrWrongCategory = errors.New("exif: wrong value category")
	// ErrIndex is returned by accessors asked for a missing component.
	ErrIndex = errors.New("exif: component index out of range")
)

// Payload is the decoded content of a value. It is always one of Ints,
// Rationals, Text, Blob or Floats.
type Payload interface {
	// Len returns the number of components encoded for the payload.
	Len() int
	payload()
}

// Ints holds the components of Byte, Short, Long, SByte, SShort and SLong
// values.
type Ints []int64

// Rationals holds the components of Rational and SRational values.
type Rationals []tiff.Rational

// Text holds an ASCII value without its terminating NUL.
type Text string

// Blob holds the raw bytes of Undefined values.
type Blob []byte

// Floats holds the components of Float and Double values.
type Floats []float64

func (p Ints) Len() int      { return len(p) }
func (p Rationals) Len() int { return len(p) }
func (p Text) Len() int      { return len(p) + 1 }
func (p Blob) Len() int      { return len(p) }
func (p Floats) Len() int    { return len(p) }

func (Ints) payload()      {}
func (Rationals) payload() {}
func (Text) payload()      {}
func (Blob) payload()      {}
func (Floats) payload()    {}

// Value is a single EXIF field: a tag, its data type and its content.
type Value struct {
	tag  Tag
	typ  tiff.DataType
	data Payload
	part Parts
}

// NewValue creates a value for tag from a Go value. Accepted shapes are
// string, []byte, the sized integer types, int, uint, int64, uint64,
// float32, float64, tiff.Rational, slices of those, and the Payload types.
//
// For catalog tags the catalog type is used whenever the value can be
// encoded with it (a float64 given to a rational tag is approximated by
// tiff.FromFloat64). Otherwise, and for unknown tags, the type follows from
// the shape of v.
func NewValue(tag Tag, v any) (*Value, error) {
	if tag.Reserved() {
		return nil, errors.Wrapf(ErrReservedTag, "%v", tag)
	}
	p, shape, err := fromGo(v)
	if err != nil {
		return nil, errors.Wrapf(err, "%v", tag)
	}
	val := &Value{tag: tag, part: tag.Part()}
	if ti, ok := catalog[tag]; ok {
		if dt, cp, ok := coerce(p, ti.types); ok {
			val.typ, val.data = dt, cp
			return val, nil
		}
	}
	val.typ, val.data = shape, p
	return val, nil
}

// MustValue is like NewValue but panics on error. It simplifies building
// values from literals.
func MustValue(tag Tag, v any) *Value {
	val, err := NewValue(tag, v)
	if err != nil {
		panic(err)
	}
	return val
}

// newRawValue builds a value from an already decoded payload.
func newRawValue(tag Tag, dt tiff.DataType, p Payload, part Parts) *Value {
	return &Value{tag: tag, typ: dt, data: p, part: part}
}

// Tag returns the value's tag.
func (v *Value) Tag() Tag { return v.tag }

// Type returns the value's data type.
func (v *Value) Type() tiff.DataType { return v.typ }

// Payload returns the value's content. The returned payload must not be
// modified.
func (v *Value) Payload() Payload { return v.data }

// Part returns the IFD group the value is serialized into.
func (v *Value) Part() Parts { return v.part }

// Count returns the number of components written for the value.
func (v *Value) Count() uint32 { return uint32(v.data.Len()) }

// IsArray reports whether the value holds more than a single component.
// Text values are never arrays.
func (v *Value) IsArray() bool {
	if _, ok := v.data.(Text); ok {
		return false
	}
	if n := v.tag.Count(); n != 0 {
		return n != 1
	}
	return v.data.Len() != 1
}

// Set replaces the content of v. The current type is kept if x can be
// encoded with it, otherwise another type accepted by the tag is chosen.
// Tags outside the catalog accept any type of the same category.
func (v *Value) Set(x any) error {
	p, shape, err := fromGo(x)
	if err != nil {
		return errors.Wrapf(err, "%v", v.tag)
	}
	types := []tiff.DataType{v.typ}
	if ti, ok := catalog[v.tag]; ok {
		types = append(types, ti.types...)
	} else if shape.Category() == v.typ.Category() {
		types = append(types, shape)
	}
	dt, cp, ok := coerce(p, types)
	if !ok {
		return errors.Wrapf(ErrTypeMismatch, "%v: cannot store %T as %v", v.tag, x, v.typ)
	}
	v.typ, v.data = dt, cp
	return nil
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	c := *v
	switch p := v.data.(type) {
	case Ints:
		c.data = append(Ints(nil), p...)
	case Rationals:
		c.data = append(Rationals(nil), p...)
	case Blob:
		c.data = append(Blob(nil), p...)
	case Floats:
		c.data = append(Floats(nil), p...)
	}
	return &c
}

// Equal reports whether v and o have the same tag, type and content.
func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.tag != o.tag || v.typ != o.typ {
		return false
	}
	switch p := v.data.(type) {
	case Text:
		q, ok := o.data.(Text)
		return ok && p == q
	case Blob:
		q, ok := o.data.(Blob)
		return ok && bytes.Equal(p, q)
	case Ints:
		q, ok := o.data.(Ints)
		if !ok || len(p) != len(q) {
			return false
		}
		for i := range p {
			if p[i] != q[i] {
				return false
			}
		}
		return true
	case Rationals:
		q, ok := o.data.(Rationals)
		if !ok || len(p) != len(q) {
			return false
		}
		for i := range p {
			if p[i] != q[i] {
				return false
			}
		}
		return true
	case Floats:
		q, ok := o.data.(Floats)
		if !ok || len(p) != len(q) {
			return false
		}
		for i := range p {
			if p[i] != q[i] && !(math.IsNaN(p[i]) && math.IsNaN(q[i])) {
				return false
			}
		}
		return true
	}
	return false
}

// Int returns the i'th component of an integer value.
func (v *Value) Int(i int) (int64, error) {
	p, ok := v.data.(Ints)
	if !ok {
		return 0, errors.Wrapf(ErrWrongCategory, "%v is %v, not an integer", v.tag, v.typ)
	}
	if i < 0 || i >= len(p) {
		return 0, errors.Wrapf(ErrIndex, "%v[%d]", v.tag, i)
	}
	return p[i], nil
}

// Rational returns the i'th component of a rational value.
func (v *Value) Rational(i int) (tiff.Rational, error) {
	p, ok := v.data.(Rationals)
	if !ok {
		return tiff.Rational{}, errors.Wrapf(ErrWrongCategory, "%v is %v, not a rational", v.tag, v.typ)
	}
	if i < 0 || i >= len(p) {
		return tiff.Rational{}, errors.Wrapf(ErrIndex, "%v[%d]", v.tag, i)
	}
	return p[i], nil
}

// Float returns the i'th component of a value as a float64. Integer and
// rational values are converted; a rational with a zero denominator gives
// NaN.
func (v *Value) Float(i int) (float64, error) {
	switch p := v.data.(type) {
	case Floats:
		if i < 0 || i >= len(p) {
			return 0, errors.Wrapf(ErrIndex, "%v[%d]", v.tag, i)
		}
		return p[i], nil
	case Rationals:
		r, err := v.Rational(i)
		return r.Float64(), err
	case Ints:
		n, err := v.Int(i)
		return float64(n), err
	}
	return 0, errors.Wrapf(ErrWrongCategory, "%v is %v, not numeric", v.tag, v.typ)
}

// Text returns the content of an ASCII value.
func (v *Value) Text() (string, error) {
	p, ok := v.data.(Text)
	if !ok {
		return "", errors.Wrapf(ErrWrongCategory, "%v is %v, not ascii", v.tag, v.typ)
	}
	return string(p), nil
}

// Bytes returns the raw content of an Undefined value, or the bytes of a
// Byte value.
func (v *Value) Bytes() ([]byte, error) {
	switch p := v.data.(type) {
	case Blob:
		return append([]byte(nil), p...), nil
	case Ints:
		if v.typ == tiff.DTByte {
			b := make([]byte, len(p))
			for i, n := range p {
				b[i] = byte(n)
			}
			return b, nil
		}
	}
	return nil, errors.Wrapf(ErrWrongCategory, "%v is %v, not bytes", v.tag, v.typ)
}

// String returns a nicely formatted version of the value.
func (v *Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v: <%v>", v.tag, err)
	}
	return fmt.Sprintf("%v: %s", v.tag, data)
}

// MarshalJSON encodes text and undefined values as strings and numeric
// values as arrays, with rationals written as "n/d".
func (v *Value) MarshalJSON() ([]byte, error) {
	switch p := v.data.(type) {
	case Text:
		return nullString([]byte(p)), nil
	case Blob:
		return blobString(p), nil
	case Ints:
		return json.Marshal([]int64(p))
	case Floats:
		rv := make([]string, len(p))
		for i, f := range p {
			rv[i] = fmt.Sprint(f)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				rv[i] = fmt.Sprintf("%q", rv[i])
			}
		}
		return []byte("[" + strings.Join(rv, ",") + "]"), nil
	case Rationals:
		rv := make([]string, len(p))
		for i, r := range p {
			rv[i] = fmt.Sprintf(`"%v"`, r)
		}
		return []byte("[" + strings.Join(rv, ",") + "]"), nil
	}
	return nil, errors.Errorf("exif: unhandled payload %T", v.data)
}

func nullString(in []byte) []byte {
	rv := bytes.Buffer{}
	for _, b := range in {
		if b < utf8.RuneSelf && unicode.IsPrint(rune(b)) {
			rv.WriteByte(b)
		}
	}
	data, _ := json.Marshal(rv.String())
	return data
}

// maxHexBlob is the longest binary blob rendered in full.
const maxHexBlob = 32

// blobString renders printable blobs as text and binary ones as hex, or as
// a byte count when long.
func blobString(in []byte) []byte {
	text := bytes.TrimRight(in, "\x00")
	printable := len(text) > 0 || len(in) == 0
	for _, b := range text {
		if b >= utf8.RuneSelf || !unicode.IsPrint(rune(b)) {
			printable = false
			break
		}
	}
	var s string
	switch {
	case printable:
		s = string(text)
	case len(in) <= maxHexBlob:
		s = fmt.Sprintf("0x%x", in)
	default:
		s = fmt.Sprintf("<%d bytes>", len(in))
	}
	data, _ := json.Marshal(s)
	return data
}

// encode returns the value's bytes in the given order.
func (v *Value) encode(order binary.ByteOrder) []byte {
	sz := int(v.typ.Size())
	switch p := v.data.(type) {
	case Text:
		b := make([]byte, len(p)+1)
		copy(b, p)
		return b
	case Blob:
		return append([]byte(nil), p...)
	case Ints:
		b := make([]byte, len(p)*sz)
		for i, n := range p {
			switch sz {
			case 1:
				b[i] = byte(n)
			case 2:
				order.PutUint16(b[i*2:], uint16(n))
			case 4:
				order.PutUint32(b[i*4:], uint32(n))
			}
		}
		return b
	case Rationals:
		b := make([]byte, len(p)*8)
		for i, r := range p {
			order.PutUint32(b[i*8:], uint32(r.Numerator))
			order.PutUint32(b[i*8+4:], uint32(r.Denominator))
		}
		return b
	case Floats:
		b := make([]byte, len(p)*sz)
		for i, f := range p {
			if v.typ == tiff.DTFloat {
				order.PutUint32(b[i*4:], math.Float32bits(float32(f)))
			} else {
				order.PutUint64(b[i*8:], math.Float64bits(f))
			}
		}
		return b
	}
	return nil
}

// valueFromEntry decodes a tiff entry into a value.
func valueFromEntry(e tiff.Entry, order binary.ByteOrder, part Parts) *Value {
	var p Payload
	switch e.Type.Category() {
	case tiff.IntVal:
		p = Ints(e.Ints(order))
	case tiff.RatVal:
		p = Rationals(e.Rationals(order))
	case tiff.FloatVal:
		p = Floats(e.Floats(order))
	case tiff.StringVal:
		p = Text(e.StringVal())
	default:
		p = Blob(append([]byte(nil), e.Val...))
	}
	return newRawValue(Tag(e.Tag), e.Type, p, part)
}

// fromGo converts a Go value into a payload and the type its shape implies.
func fromGo(v any) (Payload, tiff.DataType, error) {
	switch x := v.(type) {
	case nil:
		return nil, 0, errors.Wrap(ErrUnsupportedValue, "nil")
	case string:
		return Text(x), tiff.DTAscii, nil
	case Text:
		return x, tiff.DTAscii, nil
	case []byte:
		return Blob(append([]byte(nil), x...)), tiff.DTUndefined, nil
	case Blob:
		return append(Blob(nil), x...), tiff.DTUndefined, nil
	case uint8:
		return Ints{int64(x)}, tiff.DTByte, nil
	case int8:
		return Ints{int64(x)}, tiff.DTSByte, nil
	case uint16:
		return Ints{int64(x)}, tiff.DTShort, nil
	case []uint16:
		return intsOf(len(x), func(i int) int64 { return int64(x[i]) }), tiff.DTShort, nil
	case int16:
		return Ints{int64(x)}, tiff.DTSShort, nil
	case []int16:
		return intsOf(len(x), func(i int) int64 { return int64(x[i]) }), tiff.DTSShort, nil
	case uint32:
		return Ints{int64(x)}, tiff.DTLong, nil
	case []uint32:
		return intsOf(len(x), func(i int) int64 { return int64(x[i]) }), tiff.DTLong, nil
	case int32:
		return Ints{int64(x)}, tiff.DTSLong, nil
	case []int32:
		return intsOf(len(x), func(i int) int64 { return int64(x[i]) }), tiff.DTSLong, nil
	case []int8:
		return intsOf(len(x), func(i int) int64 { return int64(x[i]) }), tiff.DTSByte, nil
	case int:
		return intShape(Ints{int64(x)})
	case int64:
		return intShape(Ints{x})
	case uint:
		if uint64(x) > math.MaxUint32 {
			return nil, 0, errors.Wrapf(ErrUnsupportedValue, "%d out of range", x)
		}
		return intShape(Ints{int64(x)})
	case uint64:
		if x > math.MaxUint32 {
			return nil, 0, errors.Wrapf(ErrUnsupportedValue, "%d out of range", x)
		}
		return intShape(Ints{int64(x)})
	case []int:
		return intShape(intsOf(len(x), func(i int) int64 { return int64(x[i]) }))
	case []int64:
		return intShape(append(Ints(nil), x...))
	case Ints:
		return intShape(append(Ints(nil), x...))
	case tiff.Rational:
		return Rationals{x}, x.Type(), nil
	case []tiff.Rational:
		return ratShape(append(Rationals(nil), x...))
	case Rationals:
		return ratShape(append(Rationals(nil), x...))
	case float32:
		return Floats{float64(x)}, tiff.DTFloat, nil
	case []float32:
		f := make(Floats, len(x))
		for i := range x {
			f[i] = float64(x[i])
		}
		return f, tiff.DTFloat, nil
	case float64:
		return Floats{x}, tiff.DTDouble, nil
	case []float64:
		return append(Floats(nil), x...), tiff.DTDouble, nil
	case Floats:
		return append(Floats(nil), x...), tiff.DTDouble, nil
	}
	return nil, 0, errors.Wrapf(ErrUnsupportedValue, "type %T", v)
}

func intsOf(n int, at func(int) int64) Ints {
	p := make(Ints, n)
	for i := range p {
		p[i] = at(i)
	}
	return p
}

// intShape picks the narrowest of Short, Long and SLong that holds every
// component of p.
func intShape(p Ints) (Payload, tiff.DataType, error) {
	for _, dt := range []tiff.DataType{tiff.DTShort, tiff.DTLong, tiff.DTSLong} {
		if fitsInt(p, dt) {
			return p, dt, nil
		}
	}
	return nil, 0, errors.Wrapf(ErrUnsupportedValue, "%v out of range", []int64(p))
}

func ratShape(p Rationals) (Payload, tiff.DataType, error) {
	dt := tiff.DTRational
	for _, r := range p {
		if r.Signed {
			dt = tiff.DTSRational
		}
	}
	for i := range p {
		p[i].Signed = dt == tiff.DTSRational
	}
	return p, dt, nil
}

func fitsInt(p Ints, dt tiff.DataType) bool {
	var lo, hi int64
	switch dt {
	case tiff.DTByte:
		lo, hi = 0, math.MaxUint8
	case tiff.DTShort:
		lo, hi = 0, math.MaxUint16
	case tiff.DTLong:
		lo, hi = 0, math.MaxUint32
	case tiff.DTSByte:
		lo, hi = math.MinInt8, math.MaxInt8
	case tiff.DTSShort:
		lo, hi = math.MinInt16, math.MaxInt16
	case tiff.DTSLong:
		lo, hi = math.MinInt32, math.MaxInt32
	default:
		return false
	}
	for _, n := range p {
		if n < lo || n > hi {
			return false
		}
	}
	return true
}

func fitsRational(p Rationals, dt tiff.DataType) bool {
	for _, r := range p {
		if dt == tiff.DTRational {
			if r.Numerator < 0 || r.Denominator < 0 || r.Numerator > math.MaxUint32 || r.Denominator > math.MaxUint32 {
				return false
			}
		} else if r.Numerator < math.MinInt32 || r.Denominator < math.MinInt32 || r.Numerator > math.MaxInt32 || r.Denominator > math.MaxInt32 {
			return false
		}
	}
	return true
}

// coerce converts p to the first type in types able to encode it.
func coerce(p Payload, types []tiff.DataType) (tiff.DataType, Payload, bool) {
	for _, dt := range types {
		if cp, ok := convert(p, dt); ok {
			return dt, cp, true
		}
	}
	return 0, nil, false
}

// convert returns p encoded as dt, or false if p cannot be represented.
func convert(p Payload, dt tiff.DataType) (Payload, bool) {
	switch x := p.(type) {
	case Text:
		switch dt {
		case tiff.DTAscii:
			return x, true
		case tiff.DTUndefined:
			return Blob(x), true
		case tiff.DTByte:
			return intsOf(len(x), func(i int) int64 { return int64(x[i]) }), true
		}
	case Blob:
		switch dt {
		case tiff.DTUndefined:
			return x, true
		case tiff.DTAscii:
			return Text(bytes.TrimRight(x, "\x00")), true
		case tiff.DTByte:
			return intsOf(len(x), func(i int) int64 { return int64(x[i]) }), true
		}
	case Ints:
		switch dt.Category() {
		case tiff.IntVal:
			return x, fitsInt(x, dt)
		case tiff.RatVal:
			r := make(Rationals, len(x))
			for i, n := range x {
				r[i] = tiff.Rational{Numerator: n, Denominator: 1, Signed: dt == tiff.DTSRational}
			}
			return r, fitsRational(r, dt)
		case tiff.FloatVal:
			f := make(Floats, len(x))
			for i, n := range x {
				f[i] = float64(n)
			}
			return f, true
		case tiff.UndefVal:
			if fitsInt(x, tiff.DTByte) {
				b := make(Blob, len(x))
				for i, n := range x {
					b[i] = byte(n)
				}
				return b, true
			}
		}
	case Rationals:
		switch dt.Category() {
		case tiff.RatVal:
			r := make(Rationals, len(x))
			for i := range x {
				r[i] = x[i]
				r[i].Signed = dt == tiff.DTSRational
			}
			return r, fitsRational(r, dt)
		case tiff.FloatVal:
			f := make(Floats, len(x))
			for i, r := range x {
				f[i] = r.Float64()
			}
			return f, true
		}
	case Floats:
		switch dt.Category() {
		case tiff.FloatVal:
			return x, true
		case tiff.RatVal:
			r := make(Rationals, len(x))
			for i, f := range x {
				r[i] = tiff.FromFloat64(f, dt == tiff.DTSRational)
			}
			return r, true
		}
	}
	return nil, false
}
