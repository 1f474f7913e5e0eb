// Package mknote implements decoding of the maker note IFDs that Canon and
// Nikon cameras store in the MakerNote field of an EXIF block.
package mknote

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/exifprofile/exif"
	"github.com/rwcarlsen/exifprofile/tiff"
)

var (
	ErrNoMakerNote = errors.New("makernote: no makernote data found")
	ErrNoMake      = errors.New("makernote: no make data found")
	ErrUnsupported = errors.New("makernote: unsupported make")
)

var nikonV3 = []byte("Nikon\x00\x02")

// Note is a decoded maker note directory.
type Note struct {
	Make  string
	Order binary.ByteOrder
	Dir   *tiff.Dir
}

// Decode locates the MakerNote field in block, an EXIF block as accepted by
// exif.Read, and decodes it.
func Decode(block []byte) (*Note, error) {
	buf := bytes.TrimPrefix(block, exif.Identifier)
	order, off, err := tiff.DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	ifd0, err := tiff.DecodeDir(buf, off, order)
	if err != nil {
		return nil, err
	}

	mk, ok := find(ifd0, exif.Make)
	if !ok || mk.Type != tiff.DTAscii {
		return nil, ErrNoMake
	}
	ptr, ok := find(ifd0, exif.ExifIFDPointer)
	if !ok || ptr.Count != 1 || (ptr.Type != tiff.DTLong && ptr.Type != tiff.DTShort) {
		return nil, ErrNoMakerNote
	}
	sub, err := tiff.DecodeDir(buf, uint32(ptr.Ints(order)[0]), order)
	if err != nil {
		return nil, errors.Wrap(err, "makernote: exif IFD")
	}
	m, ok := find(sub, exif.MakerNote)
	if !ok {
		return nil, ErrNoMakerNote
	}

	note := &Note{Make: mk.StringVal()}
	switch {
	case note.Make == "Canon":
		err = note.loadCanon(buf, m, order)
	case bytes.HasPrefix(m.Val, nikonV3):
		err = note.loadNikonV3(m)
	default:
		return nil, errors.Wrapf(ErrUnsupported, "%q", strings.TrimSpace(note.Make))
	}
	if err != nil {
		return nil, err
	}
	return note, nil
}

func find(d *tiff.Dir, tag exif.Tag) (tiff.Entry, bool) {
	for _, e := range d.Entries {
		if e.Tag == uint16(tag) {
			return e, true
		}
	}
	return tiff.Entry{}, false
}

// Canon notes are a single IFD directory with no header. Offsets inside are
// relative to the enclosing TIFF header.
func (n *Note) loadCanon(buf []byte, m tiff.Entry, order binary.ByteOrder) error {
	if m.ValOffset == 0 {
		return errors.Wrap(ErrNoMakerNote, "canon note too short")
	}
	d, err := tiff.DecodeDir(buf, m.ValOffset, order)
	if err != nil {
		return errors.Wrap(err, "makernote: canon")
	}
	n.Order, n.Dir = order, d
	return nil
}

// Nikon v3 maker note is a self-contained TIFF structure after a 10 byte
// header (offsets are relative to the start of that structure).
func (n *Note) loadNikonV3(m tiff.Entry) error {
	if len(m.Val) < 10 {
		return errors.Wrap(ErrNoMakerNote, "nikon note too short")
	}
	sub := m.Val[10:]
	order, off, err := tiff.DecodeHeader(sub)
	if err != nil {
		return errors.Wrap(err, "makernote: nikon")
	}
	d, err := tiff.DecodeDir(sub, off, order)
	if err != nil {
		return errors.Wrap(err, "makernote: nikon")
	}
	n.Order, n.Dir = order, d
	return nil
}
