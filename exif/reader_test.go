package exif

import (
	"encoding/binary"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rwcarlsen/exifprofile/tiff"
)

// hasCause reports whether any error aggregated in err has cause target.
func hasCause(err, target error) bool {
	merr, ok := err.(*multierror.Error)
	if !ok {
		return errors.Cause(err) == target
	}
	for _, e := range merr.Errors {
		if errors.Cause(e) == target {
			return true
		}
	}
	return false
}

func tagsOf(vals []*Value) []Tag {
	var tags []Tag
	for _, v := range vals {
		tags = append(tags, v.Tag())
	}
	return tags
}

func sameTags(a, b []Tag) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReadXResolution(t *testing.T) {
	for _, prefix := range [][]byte{nil, Identifier} {
		buf := append(append([]byte(nil), prefix...), xresBlock()...)
		res := Read(buf)
		if res.Err != nil {
			t.Fatalf("prefix %q: unexpected diagnostics: %v", prefix, res.Err)
		}
		if res.Order != binary.LittleEndian {
			t.Errorf("Order = %v, want little endian", res.Order)
		}
		if len(res.Values) != 1 || len(res.InvalidTags) != 0 {
			t.Fatalf("got %d values and %d invalid tags, want 1 and 0", len(res.Values), len(res.InvalidTags))
		}
		v := res.Values[0]
		if v.Tag() != XResolution || v.Type() != tiff.DTRational || v.Part() != PartIFD0 {
			t.Errorf("unexpected value %v (%v, %v)", v, v.Type(), v.Part())
		}
		if r, err := v.Rational(0); err != nil || r != tiff.NewRational(72, 1) {
			t.Errorf("Rational(0) = %v, %v; want 72/1", r, err)
		}
	}
}

func TestReadBigEndian(t *testing.T) {
	res := Read(fixture("4D4D002A 00000008" +
		"0001" +
		"011A 0005 00000001 0000001A" +
		"00000000" +
		"00000048 00000001"))
	if res.Order != binary.BigEndian {
		t.Fatalf("Order = %v, want big endian", res.Order)
	}
	if len(res.Values) != 1 {
		t.Fatalf("got %d values, want 1", len(res.Values))
	}
	if f, _ := res.Values[0].Float(0); f != 72 {
		t.Errorf("XResolution = %v, want 72", f)
	}
}

func TestReadBadHeader(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		err  error
	}{
		{"nil", nil, tiff.ErrShortHeader},
		{"identifier only", Identifier, tiff.ErrShortHeader},
		{"short", fixture("4949"), tiff.ErrShortHeader},
		{"byte order", fixture("58582A00 08000000"), tiff.ErrByteOrder},
		{"magic", fixture("49492B00 08000000"), tiff.ErrMagic},
		{"ifd past end", fixture("49492A00 FF000000"), tiff.ErrDirOffset},
		{"ifd inside header", fixture("49492A00 04000000 0000"), tiff.ErrDirOffset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Read(tt.buf)
			if len(res.Values) != 0 || len(res.InvalidTags) != 0 {
				t.Errorf("expected an empty result, got %v", res.Values)
			}
			if !hasCause(res.Err, tt.err) {
				t.Errorf("Err = %v, want cause %v", res.Err, tt.err)
			}
		})
	}
}

func TestReadSubIFD(t *testing.T) {
	res := Read(fixture("49492A00 08000000" +
		"0100" +
		"6987 0400 01000000 1A000000" +
		"00000000" +
		"0200" +
		"2788 0300 01000000 64000000" +
		"00C0 0300 01000000 05000000" +
		"00000000"))
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if got, want := tagsOf(res.Values), []Tag{ISOSpeedRatings, Tag(0xC000)}; !sameTags(got, want) {
		t.Fatalf("tags = %v, want %v", got, want)
	}
	for _, v := range res.Values {
		if v.Part() != PartExif {
			t.Errorf("%v: part = %v, want exif", v.Tag(), v.Part())
		}
	}
	if n, _ := res.Values[0].Int(0); n != 100 {
		t.Errorf("ISOSpeedRatings = %d, want 100", n)
	}
}

func TestReadQuarantine(t *testing.T) {
	tests := []struct {
		name    string
		entry   string
		invalid Tag
		cause   error
	}{
		{"count", "1201 0300 02000000 01000100", Orientation, ErrCatalogCount},
		{"type", "1A01 0300 01000000 48000000", XResolution, ErrCatalogType},
		{"offset", "1A01 0500 01000000 F0FFFFFF", XResolution, tiff.ErrValueOutOfRange},
		{"bad type", "1201 0D00 01000000 01000000", Orientation, tiff.ErrBadType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Read(fixture("49492A00 08000000" +
				"0200" +
				tt.entry +
				"0F01 0200 03000000 41420000" +
				"00000000"))
			if !sameTags(res.InvalidTags, []Tag{tt.invalid}) {
				t.Errorf("InvalidTags = %v, want [%v]", res.InvalidTags, tt.invalid)
			}
			if !sameTags(tagsOf(res.Values), []Tag{Make}) {
				t.Errorf("values = %v, want only Make", tagsOf(res.Values))
			}
			if !hasCause(res.Err, tt.cause) {
				t.Errorf("Err = %v, want cause %v", res.Err, tt.cause)
			}
		})
	}
}

func TestReadDuplicateTag(t *testing.T) {
	res := Read(fixture("49492A00 08000000" +
		"0200" +
		"0F01 0200 03000000 41420000" +
		"0F01 0200 03000000 43440000" +
		"00000000"))
	if len(res.Values) != 1 {
		t.Fatalf("got %d values, want 1", len(res.Values))
	}
	if s, _ := res.Values[0].Text(); s != "AB" {
		t.Errorf("Make = %q, want the first occurrence", s)
	}
}

func TestReadLoop(t *testing.T) {
	// the exif pointer and the next link both point back at IFD0
	res := Read(fixture("49492A00 08000000" +
		"0200" +
		"0F01 0200 03000000 41420000" +
		"6987 0400 01000000 08000000" +
		"08000000"))
	if !sameTags(tagsOf(res.Values), []Tag{Make}) {
		t.Errorf("values = %v, want only Make", tagsOf(res.Values))
	}
	if !hasCause(res.Err, ErrIFDLoop) {
		t.Errorf("Err = %v, want an IFD loop", res.Err)
	}
}

func TestReadThumbnail(t *testing.T) {
	res := Read(thumbBlock())
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.ThumbnailOffset != 56 || res.ThumbnailLength != 4 {
		t.Errorf("thumbnail at (%d, %d), want (56, 4)", res.ThumbnailOffset, res.ThumbnailLength)
	}
	if !sameTags(tagsOf(res.Values), []Tag{Make}) {
		t.Errorf("values = %v, IFD1 fields must not be exposed", tagsOf(res.Values))
	}

	res = Read(append(append([]byte(nil), Identifier...), thumbBlock()...))
	if res.ThumbnailOffset != 62 {
		t.Errorf("offset with identifier = %d, want 62", res.ThumbnailOffset)
	}

	// length one past the end of the buffer
	buf := thumbBlock()
	binary.LittleEndian.PutUint32(buf[48:], 5)
	res = Read(buf)
	if res.ThumbnailOffset != 0 || res.ThumbnailLength != 0 {
		t.Errorf("thumbnail at (%d, %d), want none", res.ThumbnailOffset, res.ThumbnailLength)
	}
	if !hasCause(res.Err, ErrThumbnail) {
		t.Errorf("Err = %v, want ErrThumbnail", res.Err)
	}
}

func TestReadCorrupt(t *testing.T) {
	for _, block := range [][]byte{xresBlock(), thumbBlock()} {
		for n := range block {
			Read(block[:n])
		}
		for i := range block {
			for _, b := range []byte{0x00, 0x80, 0xFF} {
				buf := append([]byte(nil), block...)
				buf[i] = b
				res := Read(buf)
				if uint64(res.ThumbnailOffset)+uint64(res.ThumbnailLength) > uint64(len(buf)) {
					t.Fatalf("byte %d = %#x: thumbnail range outside buffer", i, b)
				}
			}
		}
	}
}
