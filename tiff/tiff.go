// Package tiff implements the subset of TIFF 6.0 structures used by EXIF
// blocks: the header, image file directories (IFDs) and their entries.
//
// All decoding functions operate on an immutable byte slice and an explicit
// offset. Offsets are checked against the slice length before any access, so
// corrupt input yields an error rather than a panic.
package tiff

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// HeaderSize is the size of a TIFF header: byte order, magic number and the
// offset of the first IFD.
const HeaderSize = 8

// EntrySize is the size of a single IFD entry.
const EntrySize = 12

const magic = 0x002A

var (
	ErrShortHeader = errors.New("tiff: header too short")
	ErrByteOrder   = errors.New("tiff: could not read tiff byte order")
	ErrMagic       = errors.New("tiff: could not find special tiff marker")
	ErrDirOffset   = errors.New("tiff: IFD offset out of range")
)

// DecodeHeader validates the TIFF header at the start of buf and returns its
// byte order and the offset of the first IFD.
func DecodeHeader(buf []byte) (binary.ByteOrder, uint32, error) {
	if len(buf) < HeaderSize {
		return nil, 0, ErrShortHeader
	}

	var order binary.ByteOrder
	switch string(buf[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, 0, ErrByteOrder
	}

	if order.Uint16(buf[2:]) != magic {
		return nil, 0, ErrMagic
	}
	return order, order.Uint32(buf[4:]), nil
}

// PutHeader writes a TIFF header into the first HeaderSize bytes of buf.
// It panics if order is neither binary.LittleEndian nor binary.BigEndian.
func PutHeader(buf []byte, order binary.ByteOrder, ifdOffset uint32) {
	switch order {
	case binary.LittleEndian:
		buf[0], buf[1] = 'I', 'I'
	case binary.BigEndian:
		buf[0], buf[1] = 'M', 'M'
	default:
		panic("tiff: PutHeader called with unsupported byte order")
	}
	order.PutUint16(buf[2:], magic)
	order.PutUint32(buf[4:], ifdOffset)
}

// Dir reflects the parsed content of a tiff Image File Directory (IFD).
type Dir struct {
	// Offset is the position of the IFD within the decoded buffer.
	Offset uint32
	// Entries holds the entries that decoded successfully.
	Entries []Entry
	// Errs holds one error per entry that could not be decoded, in the
	// order they were encountered.
	Errs []*EntryError
	// Next is the offset of the following IFD, zero if none.
	Next uint32
}

// EntryError reports an entry that could not be decoded. Tag and Type are
// set whenever the fixed part of the entry could be read.
type EntryError struct {
	Index int
	Tag   uint16
	Type  DataType
	Err   error
}

func (e *EntryError) Error() string {
	return errors.Wrapf(e.Err, "entry %d (tag 0x%04X)", e.Index, e.Tag).Error()
}

func (e *EntryError) Cause() error  { return e.Err }
func (e *EntryError) Unwrap() error { return e.Err }

// DecodeDir parses the IFD found at offset in buf. Offsets stored in the IFD
// are relative to the start of buf, which must therefore start at the TIFF
// header.
//
// An error is returned only when the IFD itself cannot be located. Entries
// whose values fall outside buf are reported in Dir.Errs, and an entry table
// that runs past the end of buf is truncated to the entries that fit.
func DecodeDir(buf []byte, offset uint32, order binary.ByteOrder) (*Dir, error) {
	size := uint64(len(buf))
	if uint64(offset)+2 > size {
		return nil, errors.Wrapf(ErrDirOffset, "offset %d, buffer %d", offset, size)
	}

	d := &Dir{Offset: offset}
	n := int(order.Uint16(buf[offset:]))
	pos := uint64(offset) + 2

	for i := 0; i < n; i++ {
		if pos+EntrySize > size {
			d.Errs = append(d.Errs, &EntryError{Index: i, Err: ErrEntryTruncated})
			return d, nil
		}
		e, err := DecodeEntry(buf, uint32(pos), order)
		if err != nil {
			d.Errs = append(d.Errs, &EntryError{Index: i, Tag: e.Tag, Type: e.Type, Err: err})
		} else {
			d.Entries = append(d.Entries, e)
		}
		pos += EntrySize
	}

	if pos+4 <= size {
		d.Next = order.Uint32(buf[pos:])
	}
	return d, nil
}
