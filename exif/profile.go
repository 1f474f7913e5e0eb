package exif

import (
	"encoding/json"
	"image"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNilProfile is returned by Copy when given a nil source.
	ErrNilProfile = errors.New("exif: nil source profile")
	// ErrNilSource is returned by Sync when given a nil resolution source.
	ErrNilSource = errors.New("exif: nil resolution source")
)

// state is either unparsedState or parsedState.
type state interface {
	parse() *parsedState
}

// unparsedState holds the raw block until the first access.
type unparsedState struct {
	data []byte
}

// parsedState holds the decoded values. data is the block the values were
// read from and is only used to slice the thumbnail; it is not kept in sync
// with the values.
type parsedState struct {
	data        []byte
	values      []*Value
	invalid     []Tag
	thumbOffset uint32
	thumbLength uint32
	diag        error
}

func (s *unparsedState) parse() *parsedState {
	res := Read(s.data)
	return &parsedState{
		data:        s.data,
		values:      res.Values,
		invalid:     res.InvalidTags,
		thumbOffset: res.ThumbnailOffset,
		thumbLength: res.ThumbnailLength,
		diag:        res.Err,
	}
}

func (s *parsedState) parse() *parsedState { return s }

// Profile is an EXIF block that can be queried, modified and serialized.
//
// A profile made from bytes keeps them untouched until a value is first
// read or written. Until then Bytes returns the original block. After that
// Bytes re-encodes the values, even if none was modified.
//
// A Profile is not safe for concurrent use. Clone gives an independent copy.
type Profile struct {
	parts Parts
	state state
}

// NewProfile returns a profile backed by a copy of data. Parsing is
// deferred until the first access.
func NewProfile(data []byte) *Profile {
	return &Profile{
		parts: PartAll,
		state: &unparsedState{data: append([]byte(nil), data...)},
	}
}

// NewProfileFromValues returns a profile holding copies of values. For
// repeated tags the last value wins. Nil values are ignored.
func NewProfileFromValues(values []*Value) *Profile {
	s := &parsedState{}
	for _, v := range values {
		if v == nil {
			continue
		}
		if i := index(s.values, v.tag); i >= 0 {
			s.values[i] = v.Clone()
		} else {
			s.values = append(s.values, v.Clone())
		}
	}
	return &Profile{parts: PartAll, state: s}
}

// Copy returns an independent copy of src. Parsed values are deep copied;
// an unparsed block is shared since it is never modified.
func Copy(src *Profile) (*Profile, error) {
	if src == nil {
		return nil, ErrNilProfile
	}
	p := &Profile{parts: src.parts}
	switch s := src.state.(type) {
	case *unparsedState:
		p.state = s
	case *parsedState:
		c := *s
		c.values = make([]*Value, len(s.values))
		for i, v := range s.values {
			c.values[i] = v.Clone()
		}
		c.invalid = append([]Tag(nil), s.invalid...)
		p.state = &c
	}
	return p, nil
}

// Clone returns an independent copy of p.
func (p *Profile) Clone() *Profile {
	c, _ := Copy(p)
	return c
}

// parsed moves p to the parsed state if needed.
func (p *Profile) parsed() *parsedState {
	if p.state == nil {
		p.state = &parsedState{}
	}
	s := p.state.parse()
	p.state = s
	return s
}

// IsParsed reports whether p has left the passthrough state.
func (p *Profile) IsParsed() bool {
	_, ok := p.state.(*unparsedState)
	return !ok
}

// Parts returns the groups written by Bytes.
func (p *Profile) Parts() Parts { return p.parts }

// SetParts selects the groups written by Bytes. It does not by itself end
// passthrough.
func (p *Profile) SetParts(parts Parts) { p.parts = parts }

// Values returns copies of the profile's values in order. Changes to the
// returned values do not affect p.
func (p *Profile) Values() []*Value {
	s := p.parsed()
	vals := make([]*Value, len(s.values))
	for i, v := range s.values {
		vals[i] = v.Clone()
	}
	return vals
}

// InvalidTags returns the tags that were present in the block but could not
// be decoded.
func (p *Profile) InvalidTags() []Tag {
	return append([]Tag(nil), p.parsed().invalid...)
}

// Diagnostics describes what was skipped while parsing, nil for a clean
// block.
func (p *Profile) Diagnostics() error {
	return p.parsed().diag
}

func index(values []*Value, tag Tag) int {
	for i, v := range values {
		if v.tag == tag {
			return i
		}
	}
	return -1
}

// GetValue returns a copy of the value for tag.
func (p *Profile) GetValue(tag Tag) (*Value, bool) {
	s := p.parsed()
	i := index(s.values, tag)
	if i < 0 {
		return nil, false
	}
	return s.values[i].Clone(), true
}

// SetValue stores v for tag. An existing value is updated in place and
// keeps its position; otherwise a new value is appended. See NewValue for
// the accepted types of v.
func (p *Profile) SetValue(tag Tag, v any) error {
	s := p.parsed()
	i := index(s.values, tag)
	if i < 0 {
		val, err := NewValue(tag, v)
		if err != nil {
			return err
		}
		s.values = append(s.values, val)
		return nil
	}

	err := s.values[i].Set(v)
	if errors.Cause(err) != ErrTypeMismatch {
		return err
	}
	val, err := NewValue(tag, v)
	if err != nil {
		return err
	}
	s.values[i] = val
	return nil
}

// RemoveValue deletes the value for tag and reports whether it was present.
func (p *Profile) RemoveValue(tag Tag) bool {
	s := p.parsed()
	i := index(s.values, tag)
	if i < 0 {
		return false
	}
	s.values = append(s.values[:i], s.values[i+1:]...)
	return true
}

// Bytes returns the serialized block. An untouched profile returns its
// original bytes. A parsed profile with no values returns nil, meaning the
// block should be omitted.
func (p *Profile) Bytes() []byte {
	if s, ok := p.state.(*unparsedState); ok {
		if len(s.data) == 0 {
			return nil
		}
		return append([]byte(nil), s.data...)
	}

	s := p.parsed()
	if len(s.values) == 0 {
		return nil
	}
	w := &Writer{Parts: p.parts}
	if thumb, ok := s.thumbnail(); ok {
		w.Thumbnail = thumb
	}
	return w.Write(s.values)
}

func (s *parsedState) thumbnail() ([]byte, bool) {
	off, n := uint64(s.thumbOffset), uint64(s.thumbLength)
	if off == 0 || n == 0 || off+n > uint64(len(s.data)) {
		return nil, false
	}
	return s.data[off : off+n], true
}

// Thumbnail returns a copy of the embedded thumbnail bytes.
func (p *Profile) Thumbnail() ([]byte, bool) {
	b, ok := p.parsed().thumbnail()
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

// CreateThumbnail decodes the embedded thumbnail. It returns nil and no
// error when the block has no usable thumbnail. A nil decode uses
// DecodeThumbnail.
func (p *Profile) CreateThumbnail(decode DecodeFunc) (image.Image, error) {
	b, ok := p.parsed().thumbnail()
	if !ok {
		return nil, nil
	}
	return decodeBytes(decode, b)
}

// ResolutionSource provides the resolution of the image a profile belongs to.
type ResolutionSource interface {
	Resolution() (x, y float64)
}

// Sync updates XResolution and YResolution from src. Tags missing from the
// profile are not added.
func (p *Profile) Sync(src ResolutionSource) error {
	if src == nil {
		return ErrNilSource
	}
	x, y := src.Resolution()
	s := p.parsed()
	for _, r := range []struct {
		tag Tag
		val float64
	}{{XResolution, x}, {YResolution, y}} {
		i := index(s.values, r.tag)
		if i < 0 {
			continue
		}
		if err := p.SetValue(r.tag, r.val); err != nil {
			return errors.Wrap(err, "exif: sync")
		}
	}
	return nil
}

// Walker is the interface used to traverse the values of a profile.
type Walker interface {
	// Walk is called for each value. If it returns an error the walk stops
	// and that error is returned.
	Walk(tag Tag, v *Value) error
}

// Walk calls w for a copy of each value in order.
func (p *Profile) Walk(w Walker) error {
	for _, v := range p.Values() {
		if err := w.Walk(v.tag, v); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON encodes the values as an object keyed by tag name.
func (p *Profile) MarshalJSON() ([]byte, error) {
	m := map[string]*Value{}
	for _, v := range p.Values() {
		m[v.tag.String()] = v
	}
	return json.Marshal(m)
}

// String returns a pretty text representation of the values grouped by
// part.
func (p *Profile) String() string {
	vals := p.Values()
	var b strings.Builder
	for _, pn := range partNames {
		first := true
		for _, v := range vals {
			if v.part != pn.p {
				continue
			}
			if first {
				b.WriteString(pn.name + ":\n")
				first = false
			}
			b.WriteString("    " + v.String() + "\n")
		}
	}
	return b.String()
}
