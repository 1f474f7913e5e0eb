package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rwcarlsen/exifprofile/tiff"
)

// Identifier is the marker preceding the TIFF header in JPEG APP1 segments.
var Identifier = []byte("Exif\x00\x00")

var (
	ErrIFDLoop      = errors.New("exif: IFD offset visited twice")
	ErrBadPointer   = errors.New("exif: malformed sub-IFD pointer")
	ErrCatalogType  = errors.New("exif: type disagrees with tag catalog")
	ErrCatalogCount = errors.New("exif: count disagrees with tag catalog")
	ErrThumbnail    = errors.New("exif: thumbnail range out of bounds")
)

// ReadResult holds everything recovered from an EXIF block.
type ReadResult struct {
	// Values holds the decoded values in encounter order, unique by tag.
	Values []*Value
	// InvalidTags lists tags that were present but could not be decoded or
	// disagreed with the tag catalog, in encounter order.
	InvalidTags []Tag
	// ThumbnailOffset and ThumbnailLength locate the embedded thumbnail
	// relative to the start of the buffer given to Read. Both are zero when
	// there is no usable thumbnail.
	ThumbnailOffset uint32
	ThumbnailLength uint32
	// Order is the byte order of the block, nil if the header was invalid.
	Order binary.ByteOrder
	// Err describes everything that was skipped, nil for clean input. It is
	// a *multierror.Error when non-nil.
	Err error
}

type reader struct {
	buf     []byte // starts at the TIFF header
	order   binary.ByteOrder
	visited map[uint32]bool
	seen    map[Tag]bool
	invalid map[Tag]bool
	res     *ReadResult
	errs    *multierror.Error
}

// Read decodes the EXIF block in buf. buf holds a TIFF header and its IFDs,
// optionally preceded by the "Exif\0\0" identifier. Read never fails:
// malformed input yields a partial or empty result with the problems
// recorded in ReadResult.Err.
func Read(buf []byte) *ReadResult {
	res := &ReadResult{}
	base := 0
	if bytes.HasPrefix(buf, Identifier) {
		base = len(Identifier)
	}

	order, ifd0, err := tiff.DecodeHeader(buf[base:])
	if err != nil {
		slog.Debug("exif: invalid header", "err", err)
		res.Err = multierror.Append(nil, err).ErrorOrNil()
		return res
	}
	res.Order = order

	r := &reader{
		buf:     buf[base:],
		order:   order,
		visited: map[uint32]bool{},
		seen:    map[Tag]bool{},
		invalid: map[Tag]bool{},
		res:     res,
	}
	r.walk(ifd0)
	if res.ThumbnailLength != 0 {
		res.ThumbnailOffset += uint32(base)
	}
	res.Err = r.errs.ErrorOrNil()
	return res
}

func (r *reader) fail(err error) {
	r.errs = multierror.Append(r.errs, err)
}

// dir decodes the IFD at offset unless it was already visited.
func (r *reader) dir(name string, offset uint32) *tiff.Dir {
	if offset < tiff.HeaderSize {
		r.fail(errors.Wrapf(tiff.ErrDirOffset, "%s IFD at %d overlaps header", name, offset))
		return nil
	}
	if r.visited[offset] {
		r.fail(errors.Wrapf(ErrIFDLoop, "%s IFD at %d", name, offset))
		return nil
	}
	r.visited[offset] = true

	d, err := tiff.DecodeDir(r.buf, offset, r.order)
	if err != nil {
		r.fail(errors.Wrapf(err, "%s IFD", name))
		return nil
	}
	for _, ee := range d.Errs {
		slog.Debug("exif: skipping entry", "ifd", name, "offset", offset, "tag", fmt.Sprintf("0x%04X", ee.Tag), "err", ee.Err)
		r.fail(errors.Wrapf(ee, "%s IFD at %d", name, offset))
		if errors.Cause(ee.Err) != tiff.ErrEntryTruncated {
			r.markInvalid(Tag(ee.Tag))
		}
	}
	return d
}

func (r *reader) walk(ifd0 uint32) {
	d := r.dir("primary", ifd0)
	if d == nil {
		return
	}

	var exifOff, gpsOff uint32
	for _, e := range d.Entries {
		switch Tag(e.Tag) {
		case ExifIFDPointer:
			exifOff = r.pointer(e)
		case GPSIFDPointer:
			gpsOff = r.pointer(e)
		}
	}
	r.collect(d, PartIFD0)

	if exifOff != 0 {
		if sub := r.dir("exif", exifOff); sub != nil {
			r.collect(sub, PartExif)
		}
	}
	if gpsOff != 0 {
		if sub := r.dir("gps", gpsOff); sub != nil {
			r.collect(sub, PartGPS)
		}
	}

	if d.Next != 0 {
		if ifd1 := r.dir("thumbnail", d.Next); ifd1 != nil {
			r.thumbnail(ifd1)
		}
	}
}

// pointer returns the sub-IFD offset held by e, or 0 if e is malformed.
func (r *reader) pointer(e tiff.Entry) uint32 {
	if e.Count != 1 || (e.Type != tiff.DTLong && e.Type != tiff.DTShort) {
		r.fail(errors.Wrapf(ErrBadPointer, "%v: %v[%d]", Tag(e.Tag), e.Type, e.Count))
		return 0
	}
	return uint32(e.Ints(r.order)[0])
}

// collect adds the values of d to the result.
func (r *reader) collect(d *tiff.Dir, part Parts) {
	for _, e := range d.Entries {
		tag := Tag(e.Tag)
		if tag.Reserved() {
			continue
		}
		if err := checkCatalog(e); err != nil {
			slog.Debug("exif: skipping entry", "tag", tag, "offset", d.Offset, "err", err)
			r.fail(err)
			r.markInvalid(tag)
			continue
		}
		if r.seen[tag] || r.invalid[tag] {
			continue
		}
		r.seen[tag] = true
		p := part
		if ti, ok := catalog[tag]; ok {
			p = ti.part
		}
		r.res.Values = append(r.res.Values, valueFromEntry(e, r.order, p))
	}
}

func checkCatalog(e tiff.Entry) error {
	ti, ok := catalog[Tag(e.Tag)]
	if !ok {
		return nil
	}
	if !ti.accepts(e.Type) {
		return errors.Wrapf(ErrCatalogType, "%s: got %v", ti.name, e.Type)
	}
	if ti.count != 0 && e.Count != ti.count {
		return errors.Wrapf(ErrCatalogCount, "%s: got %d, want %d", ti.name, e.Count, ti.count)
	}
	return nil
}

func (r *reader) markInvalid(tag Tag) {
	if tag.Reserved() || r.invalid[tag] || r.seen[tag] {
		return
	}
	r.invalid[tag] = true
	r.res.InvalidTags = append(r.res.InvalidTags, tag)
}

// thumbnail records the JPEG thumbnail located by ifd1. Other IFD1 fields
// describe the thumbnail image and are not kept.
func (r *reader) thumbnail(ifd1 *tiff.Dir) {
	var off, n uint32
	var haveOff, haveLen bool
	for _, e := range ifd1.Entries {
		if e.Count != 1 || e.Type.Category() != tiff.IntVal {
			continue
		}
		switch Tag(e.Tag) {
		case JPEGInterchangeFormat:
			off, haveOff = uint32(e.Ints(r.order)[0]), true
		case JPEGInterchangeFormatLength:
			n, haveLen = uint32(e.Ints(r.order)[0]), true
		}
	}
	if !haveOff || !haveLen || n == 0 {
		return
	}
	if off == 0 || uint64(off)+uint64(n) > uint64(len(r.buf)) {
		r.fail(errors.Wrapf(ErrThumbnail, "offset %d, length %d, buffer %d", off, n, len(r.buf)))
		return
	}
	r.res.ThumbnailOffset, r.res.ThumbnailLength = off, n
}
