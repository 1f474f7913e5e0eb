package exif

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/exifprofile/tiff"
)

func TestProfileScenario(t *testing.T) {
	p := NewProfile(xresBlock())

	v, ok := p.GetValue(XResolution)
	if !ok {
		t.Fatal("XResolution not found")
	}
	if r, _ := v.Rational(0); r != tiff.NewRational(72, 1) {
		t.Errorf("XResolution = %v, want 72/1", r)
	}

	if err := p.SetValue(XResolution, tiff.NewRational(96, 1)); err != nil {
		t.Fatal(err)
	}
	vals := p.Values()
	if len(vals) != 1 {
		t.Fatalf("got %d values, want 1", len(vals))
	}
	if r, _ := vals[0].Rational(0); r != tiff.NewRational(96, 1) {
		t.Errorf("XResolution = %v, want 96/1", r)
	}
}

func TestProfilePassthrough(t *testing.T) {
	for _, data := range [][]byte{xresBlock(), thumbBlock(), []byte("not exif at all")} {
		p := NewProfile(data)
		p.SetParts(PartIFD0)
		if !bytes.Equal(p.Bytes(), data) {
			t.Errorf("Bytes() = %x, want the original %x", p.Bytes(), data)
		}
		if p.IsParsed() {
			t.Error("Bytes must not parse an untouched profile")
		}
	}

	// any read forfeits passthrough, even one that finds nothing
	p := NewProfile(thumbBlock())
	if _, ok := p.GetValue(Model); ok {
		t.Fatal("unexpected Model")
	}
	if !p.IsParsed() {
		t.Error("GetValue should parse")
	}
	if bytes.Equal(p.Bytes(), thumbBlock()) {
		t.Error("expected a re-encoded block after a read")
	}
	sameValues(t, Read(thumbBlock()).Values, Read(p.Bytes()).Values)

	if b := NewProfile(nil).Bytes(); b != nil {
		t.Errorf("empty profile Bytes() = %x", b)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	data := Write(sampleValues(), PartAll)
	p := NewProfile(data)
	before := p.Values()
	out := p.Bytes()
	sameValues(t, before, NewProfile(out).Values())
	sameValues(t, sampleValues(), before)
}

func TestProfileSetValue(t *testing.T) {
	p := NewProfileFromValues(sampleValues())
	n := len(p.Values())

	for i := 0; i < 2; i++ {
		if err := p.SetValue(Model, "X100"); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(p.Values()); got != n+1 {
		t.Errorf("got %d values after setting Model twice, want %d", got, n+1)
	}
	v, _ := p.GetValue(Model)
	if s, _ := v.Text(); s != "X100" {
		t.Errorf("Model = %q", s)
	}

	// type changes replace the value in place
	if err := p.SetValue(Orientation, "top-left"); err != nil {
		t.Fatal(err)
	}
	if v, _ := p.GetValue(Orientation); v.Type() != tiff.DTAscii {
		t.Errorf("Orientation type = %v", v.Type())
	}
	if err := p.SetValue(ExifIFDPointer, 8); errors.Cause(err) != ErrReservedTag {
		t.Errorf("err = %v, want ErrReservedTag", err)
	}
	if err := p.SetValue(Make, nil); errors.Cause(err) != ErrUnsupportedValue {
		t.Errorf("err = %v, want ErrUnsupportedValue", err)
	}

	seen := map[Tag]bool{}
	for _, v := range p.Values() {
		if seen[v.Tag()] {
			t.Errorf("%v appears twice", v.Tag())
		}
		seen[v.Tag()] = true
	}
}

func TestProfileRemoveValue(t *testing.T) {
	p := NewProfile(thumbBlock())
	if p.RemoveValue(Model) {
		t.Error("removed an absent tag")
	}
	if !p.RemoveValue(Make) {
		t.Error("Make was present")
	}
	if _, ok := p.GetValue(Make); ok {
		t.Error("Make still present")
	}
	if p.RemoveValue(Make) {
		t.Error("removed Make twice")
	}
	if b := p.Bytes(); b != nil {
		t.Errorf("Bytes() = %x, want nil for an emptied profile", b)
	}
}

func TestProfileValuesSnapshot(t *testing.T) {
	p := NewProfile(xresBlock())
	vals := p.Values()
	vals[0].Set(tiff.NewRational(1, 1))
	vals[0] = MustValue(Make, "x")

	if len(p.Values()) != 1 {
		t.Error("replacing a snapshot entry changed the profile")
	}
	v, _ := p.GetValue(XResolution)
	if r, _ := v.Rational(0); r != tiff.NewRational(72, 1) {
		t.Errorf("modifying the snapshot changed the profile: %v", r)
	}
}

func TestProfileInvalidTags(t *testing.T) {
	p := NewProfile(fixture("49492A00 08000000" +
		"0200" +
		"1201 0300 02000000 01000100" +
		"0F01 0200 03000000 41420000" +
		"00000000"))
	if got := p.InvalidTags(); !sameTags(got, []Tag{Orientation}) {
		t.Errorf("InvalidTags = %v", got)
	}
	if _, ok := p.GetValue(Orientation); ok {
		t.Error("quarantined tag exposed as a value")
	}
	if !hasCause(p.Diagnostics(), ErrCatalogCount) {
		t.Errorf("Diagnostics = %v", p.Diagnostics())
	}
	if NewProfile(xresBlock()).Diagnostics() != nil {
		t.Error("clean block reported diagnostics")
	}
}

func TestCopy(t *testing.T) {
	if _, err := Copy(nil); err != ErrNilProfile {
		t.Errorf("err = %v, want ErrNilProfile", err)
	}

	src := NewProfile(xresBlock())
	src.SetParts(PartIFD0 | PartExif)
	c, err := Copy(src)
	if err != nil {
		t.Fatal(err)
	}
	if c.IsParsed() || c.Parts() != src.Parts() {
		t.Error("copy of an unparsed profile should stay unparsed and keep parts")
	}
	if !bytes.Equal(c.Bytes(), xresBlock()) {
		t.Error("copy lost the raw block")
	}

	src.SetValue(Make, "A")
	c = src.Clone()
	c.SetValue(Make, "B")
	c.RemoveValue(XResolution)

	v, _ := src.GetValue(Make)
	if s, _ := v.Text(); s != "A" {
		t.Errorf("source Make = %q after changing the copy", s)
	}
	if _, ok := src.GetValue(XResolution); !ok {
		t.Error("removing from the copy changed the source")
	}
}

func TestNewProfileFromValues(t *testing.T) {
	p := NewProfileFromValues([]*Value{
		MustValue(Make, "first"),
		nil,
		MustValue(Make, "last"),
	})
	vals := p.Values()
	if len(vals) != 1 {
		t.Fatalf("got %d values, want 1", len(vals))
	}
	if s, _ := vals[0].Text(); s != "last" {
		t.Errorf("Make = %q, want the last value", s)
	}
	if !p.IsParsed() {
		t.Error("profiles built from values are parsed")
	}
	if b := NewProfileFromValues(nil).Bytes(); b != nil {
		t.Errorf("empty profile Bytes() = %x", b)
	}
}

type resolution struct{ x, y float64 }

func (r resolution) Resolution() (float64, float64) { return r.x, r.y }

func TestSync(t *testing.T) {
	p := NewProfile(xresBlock())
	if err := p.Sync(resolution{300, 150}); err != nil {
		t.Fatal(err)
	}
	v, _ := p.GetValue(XResolution)
	if r, _ := v.Rational(0); r != tiff.NewRational(300, 1) {
		t.Errorf("XResolution = %v, want 300/1", r)
	}
	if _, ok := p.GetValue(YResolution); ok {
		t.Error("Sync inserted YResolution")
	}

	p = NewProfile(thumbBlock())
	if err := p.Sync(resolution{72.5, 72.5}); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.GetValue(XResolution); ok {
		t.Error("Sync inserted XResolution")
	}

	if err := p.Sync(nil); err != ErrNilSource {
		t.Errorf("Sync(nil) = %v, want %v", err, ErrNilSource)
	}
}

func TestThumbnail(t *testing.T) {
	p := NewProfile(thumbBlock())
	thumb, ok := p.Thumbnail()
	if !ok || !bytes.Equal(thumb, []byte{0xFF, 0xD8, 0xFF, 0xD9}) {
		t.Errorf("Thumbnail() = % x, %v", thumb, ok)
	}

	var got []byte
	decode := func(r io.Reader) (image.Image, error) {
		got, _ = io.ReadAll(r)
		return image.NewGray(image.Rect(0, 0, 1, 1)), nil
	}
	img, err := p.CreateThumbnail(decode)
	if err != nil || img == nil {
		t.Fatalf("CreateThumbnail = %v, %v", img, err)
	}
	if !bytes.Equal(got, thumb) {
		t.Errorf("decoder got % x", got)
	}

	// length past the end of the buffer
	bad := thumbBlock()
	binary.LittleEndian.PutUint32(bad[48:], 0xFFFFFFF0)
	p = NewProfile(bad)
	if _, ok := p.Thumbnail(); ok {
		t.Error("out of range thumbnail reported")
	}
	img, err = p.CreateThumbnail(func(io.Reader) (image.Image, error) {
		t.Error("decoder called for an absent thumbnail")
		return nil, nil
	})
	if img != nil || err != nil {
		t.Errorf("CreateThumbnail = %v, %v; want nil, nil", img, err)
	}
}

func TestCreateThumbnailJPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for i := range src.Pix {
		src.Pix[i] = 0x80
	}
	src.Set(0, 0, color.White)
	var jb bytes.Buffer
	if err := jpeg.Encode(&jb, src, nil); err != nil {
		t.Fatal(err)
	}

	w := &Writer{Parts: PartAll, Thumbnail: jb.Bytes()}
	p := NewProfile(w.Write([]*Value{MustValue(Make, "Canon")}))
	img, err := p.CreateThumbnail(nil)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v, want %v", img.Bounds(), src.Bounds())
	}

	// thumbnails survive re-encoding
	p.SetValue(Model, "EOS")
	thumb, ok := NewProfile(p.Bytes()).Thumbnail()
	if !ok || !bytes.Equal(thumb, jb.Bytes()) {
		t.Error("thumbnail lost after re-encoding")
	}
	p.SetParts(PartAll &^ PartThumbnail)
	if _, ok := NewProfile(p.Bytes()).Thumbnail(); ok {
		t.Error("thumbnail written although not selected")
	}

	if _, err := NewProfile(thumbBlock()).CreateThumbnail(nil); err == nil {
		t.Error("expected a decode error for a truncated JPEG")
	}
}

type collect struct {
	tags []Tag
	stop Tag
}

var errStop = errors.New("stop")

func (c *collect) Walk(tag Tag, v *Value) error {
	c.tags = append(c.tags, tag)
	if tag == c.stop {
		return errStop
	}
	return nil
}

func TestWalk(t *testing.T) {
	p := NewProfileFromValues(sampleValues())
	c := &collect{}
	if err := p.Walk(c); err != nil {
		t.Fatal(err)
	}
	if len(c.tags) != len(sampleValues()) {
		t.Errorf("walked %d values, want %d", len(c.tags), len(sampleValues()))
	}

	c = &collect{stop: XResolution}
	if err := p.Walk(c); err != errStop {
		t.Errorf("err = %v, want errStop", err)
	}
	if c.tags[len(c.tags)-1] != XResolution || len(c.tags) != 3 {
		t.Errorf("walk did not stop at XResolution: %v", c.tags)
	}
}

func TestProfileMarshalJSON(t *testing.T) {
	p := NewProfile(xresBlock())
	p.SetValue(Make, "Canon")
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("%s: %v", b, err)
	}
	if string(m["XResolution"]) != `["72/1"]` || string(m["Make"]) != `"Canon"` {
		t.Errorf("unexpected json %s", b)
	}

	s := NewProfileFromValues(sampleValues()).String()
	for _, want := range []string{"ifd0:\n", "exif:\n", "gps:\n", `Make: "Canon"`} {
		if !strings.Contains(s, want) {
			t.Errorf("String() lacks %q:\n%s", want, s)
		}
	}
}
