package exif

import (
	"encoding/binary"
	"sort"

	"github.com/rwcarlsen/exifprofile/tiff"
)

// compressionJPEG is the Compression value of an IFD1 that carries a JPEG
// thumbnail.
const compressionJPEG = 6

// Writer serializes values into a TIFF structured EXIF block. The block
// starts at the TIFF header; containers that need the "Exif\0\0" identifier
// prepend it themselves.
type Writer struct {
	// Parts selects the groups written. Values of other groups are dropped.
	Parts Parts
	// Order is the byte order of the output, binary.LittleEndian if nil.
	Order binary.ByteOrder
	// Thumbnail holds JPEG bytes written after an IFD1 when Parts includes
	// PartThumbnail. Ignored when empty.
	Thumbnail []byte
}

// Write serializes the values selected by parts in little-endian order
// without a thumbnail.
func Write(values []*Value, parts Parts) []byte {
	w := &Writer{Parts: parts}
	return w.Write(values)
}

// field is a single IFD entry prepared for encoding.
type field struct {
	tag   uint16
	typ   tiff.DataType
	count uint32
	data  []byte
}

type dir []field

func (d dir) Len() int           { return len(d) }
func (d dir) Swap(i, j int)      { d[i], d[j] = d[j], d[i] }
func (d dir) Less(i, j int) bool { return d[i].tag < d[j].tag }

// encodedLen is the size of the entry table, the next IFD link and the
// word aligned overflow data.
func (d dir) encodedLen() uint32 {
	n := uint32(2 + len(d)*tiff.EntrySize + 4)
	for _, f := range d {
		if len(f.data) > 4 {
			n += aligned(len(f.data))
		}
	}
	return n
}

// encode writes d at offset in p and returns the offset following its data.
func (d dir) encode(order binary.ByteOrder, p []byte, offset, next uint32) uint32 {
	dataOff := offset + 2 + uint32(len(d)*tiff.EntrySize) + 4

	order.PutUint16(p[offset:], uint16(len(d)))
	pos := offset + 2
	for _, f := range d {
		if len(f.data) <= 4 {
			tiff.PutEntry(p, pos, order, f.tag, f.typ, f.count, f.data)
		} else {
			var off [4]byte
			order.PutUint32(off[:], dataOff)
			tiff.PutEntry(p, pos, order, f.tag, f.typ, f.count, off[:])
			copy(p[dataOff:], f.data)
			dataOff += aligned(len(f.data))
		}
		pos += tiff.EntrySize
	}
	order.PutUint32(p[pos:], next)
	return dataOff
}

func aligned(n int) uint32 {
	return uint32(n + n&1)
}

func (w *Writer) order() binary.ByteOrder {
	if w.Order == binary.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Write serializes values. Values are grouped into IFD0, the Exif sub-IFD
// and the GPS sub-IFD, each sorted by tag. Pointer entries are generated.
// Values with no components and repeated tags after the first are skipped.
// Write returns nil when no value is selected.
func (w *Writer) Write(values []*Value) []byte {
	order := w.order()

	var ifd0, exif, gps dir
	seen := map[Tag]bool{}
	for _, v := range values {
		if v == nil || v.Count() == 0 || v.tag.Reserved() || seen[v.tag] {
			continue
		}
		if v.part&w.Parts == 0 {
			continue
		}
		seen[v.tag] = true
		f := field{tag: uint16(v.tag), typ: v.typ, count: v.Count(), data: v.encode(order)}
		switch v.part {
		case PartExif:
			exif = append(exif, f)
		case PartGPS:
			gps = append(gps, f)
		default:
			ifd0 = append(ifd0, f)
		}
	}
	if len(ifd0)+len(exif)+len(gps) == 0 {
		return nil
	}

	// pointer values are patched once the layout is known
	exifPtr, gpsPtr := -1, -1
	if len(exif) > 0 {
		ifd0 = append(ifd0, field{tag: uint16(ExifIFDPointer), typ: tiff.DTLong, count: 1, data: make([]byte, 4)})
	}
	if len(gps) > 0 {
		ifd0 = append(ifd0, field{tag: uint16(GPSIFDPointer), typ: tiff.DTLong, count: 1, data: make([]byte, 4)})
	}
	for _, d := range []dir{ifd0, exif, gps} {
		sort.Sort(d)
	}
	for i, f := range ifd0 {
		switch Tag(f.tag) {
		case ExifIFDPointer:
			exifPtr = i
		case GPSIFDPointer:
			gpsPtr = i
		}
	}

	var ifd1 dir
	thumb := w.Thumbnail
	if w.Parts&PartThumbnail != 0 && len(thumb) > 0 {
		comp := make([]byte, 2)
		order.PutUint16(comp, compressionJPEG)
		ifd1 = dir{
			{tag: uint16(Compression), typ: tiff.DTShort, count: 1, data: comp},
			{tag: uint16(JPEGInterchangeFormat), typ: tiff.DTLong, count: 1, data: make([]byte, 4)},
			{tag: uint16(JPEGInterchangeFormatLength), typ: tiff.DTLong, count: 1, data: make([]byte, 4)},
		}
	} else {
		thumb = nil
	}

	// header | IFD0 | Exif | GPS | IFD1 | thumbnail
	ifd0Off := uint32(tiff.HeaderSize)
	exifOff := ifd0Off + ifd0.encodedLen()
	gpsOff := exifOff
	if len(exif) > 0 {
		gpsOff += exif.encodedLen()
	}
	ifd1Off := gpsOff
	if len(gps) > 0 {
		ifd1Off += gps.encodedLen()
	}
	thumbOff := ifd1Off
	if ifd1 != nil {
		thumbOff += ifd1.encodedLen()
		order.PutUint32(ifd1[1].data, thumbOff)
		order.PutUint32(ifd1[2].data, uint32(len(thumb)))
	}
	if exifPtr >= 0 {
		order.PutUint32(ifd0[exifPtr].data, exifOff)
	}
	if gpsPtr >= 0 {
		order.PutUint32(ifd0[gpsPtr].data, gpsOff)
	}

	p := make([]byte, thumbOff+uint32(len(thumb)))
	tiff.PutHeader(p, order, ifd0Off)

	var next uint32
	if ifd1 != nil {
		next = ifd1Off
	}
	ifd0.encode(order, p, ifd0Off, next)
	if len(exif) > 0 {
		exif.encode(order, p, exifOff, 0)
	}
	if len(gps) > 0 {
		gps.encode(order, p, gpsOff, 0)
	}
	if ifd1 != nil {
		ifd1.encode(order, p, ifd1Off, 0)
		copy(p[thumbOff:], thumb)
	}
	return p
}
