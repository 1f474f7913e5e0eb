// Package exif implements reading, modifying and writing of EXIF metadata
// blocks as defined by EXIF 2.3.
//
// A Profile wraps one block. It is created from the raw bytes found in an
// image container, or from a list of values, and serialized back with
// Profile.Bytes. Read and Writer give direct access to the codec.
package exif

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const app1Marker = 0xE1

// maxSegment is the largest payload a JPEG segment can carry.
const maxSegment = 0xFFFF - 2

var (
	ErrNoExif      = errors.New("exif: failed to find exif intro marker")
	ErrTooLong     = errors.New("exif: block too large for a JPEG segment")
	ErrShortMarker = errors.New("exif: truncated segment")
)

// Decode finds the EXIF APP1 segment of the JPEG stream in r and returns a
// profile for it. Other APP1 segments, such as XMP, are skipped. Parsing of
// the block itself is deferred until the profile is accessed.
func Decode(r io.Reader) (*Profile, error) {
	buf := bufio.NewReader(r)
	for {
		sec, err := newAppSec(app1Marker, buf)
		if err != nil {
			return nil, err
		}
		data, err := sec.exifData()
		if err == ErrNoExif {
			continue
		} else if err != nil {
			return nil, err
		}
		return NewProfile(data), nil
	}
}

// APP1 returns a complete JPEG APP1 segment carrying block, which must start
// at a TIFF header. It returns nil for an empty block.
func APP1(block []byte) ([]byte, error) {
	if len(block) == 0 {
		return nil, nil
	}
	n := len(Identifier) + len(block)
	if n > maxSegment {
		return nil, errors.Wrapf(ErrTooLong, "%d bytes", n)
	}
	seg := make([]byte, 4, 4+n)
	seg[0], seg[1] = 0xFF, app1Marker
	binary.BigEndian.PutUint16(seg[2:], uint16(n+2))
	seg = append(seg, Identifier...)
	return append(seg, block...), nil
}

type appSec struct {
	marker byte
	data   []byte
}

// newAppSec finds the next marker in buf and returns the corresponding
// application data section. The end of the stream gives ErrNoExif.
func newAppSec(marker byte, buf *bufio.Reader) (*appSec, error) {
	app := &appSec{marker: marker}

	// seek to marker
	for {
		b, err := buf.ReadByte()
		if err == io.EOF {
			return nil, ErrNoExif
		} else if err != nil {
			return nil, errors.Wrap(err, "exif: searching for APP1 marker")
		}
		n, err := buf.Peek(1)
		if err == io.EOF {
			return nil, ErrNoExif
		} else if err != nil {
			return nil, errors.Wrap(err, "exif: searching for APP1 marker")
		}
		if b == 0xFF && n[0] == marker {
			buf.ReadByte()
			break
		}
	}

	// read section size
	var dataLen uint16
	if err := binary.Read(buf, binary.BigEndian, &dataLen); err != nil {
		return nil, errors.Wrap(err, "exif: reading segment length")
	}
	if dataLen < 2 {
		return nil, ErrShortMarker
	}
	dataLen -= 2 // subtract length of the 2 byte size marker itself

	app.data = make([]byte, dataLen)
	if _, err := io.ReadFull(buf, app.data); err != nil {
		return nil, errors.Wrap(ErrShortMarker, err.Error())
	}
	return app, nil
}

// exifData returns the section's content following the exif identifier.
func (app *appSec) exifData() ([]byte, error) {
	if !bytes.HasPrefix(app.data, Identifier) {
		return nil, ErrNoExif
	}
	return app.data[len(Identifier):], nil
}
