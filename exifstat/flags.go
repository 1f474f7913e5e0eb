package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/exifprofile/exif"
	"github.com/rwcarlsen/exifprofile/tiff"
)

// listFlag collects the values of a repeated flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(s string) error {
	*l = append(*l, s)
	return nil
}

// parseTag accepts a catalog name such as "Model" or a hex id such as
// "0x9c9b".
func parseTag(s string) (exif.Tag, error) {
	if tag, ok := exif.TagByName(s); ok {
		return tag, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseUint(s[2:], 16, 16)
		if err == nil {
			return exif.Tag(n), nil
		}
	}
	return 0, errors.Errorf("unknown tag %q", s)
}

// parseAssignment parses Tag=value.
func parseAssignment(kv string) (exif.Tag, any, error) {
	name, val, ok := strings.Cut(kv, "=")
	if !ok {
		return 0, nil, errors.Errorf("%q is not of the form Tag=value", kv)
	}
	tag, err := parseTag(strings.TrimSpace(name))
	if err != nil {
		return 0, nil, err
	}
	v, err := parseValue(tag, val)
	return tag, v, err
}

// parseValue converts the text of a -set flag. ASCII tags take the text
// as is. Otherwise "n/d" is a rational, integers and floats are numbers and
// anything else is text. Comma separated lists give arrays.
func parseValue(tag exif.Tag, s string) (any, error) {
	if types := tag.Types(); len(types) > 0 && (types[0] == tiff.DTAscii || types[0] == tiff.DTUndefined) {
		return s, nil
	}
	fields := strings.Split(s, ",")
	var (
		ints   []int64
		floats []float64
		rats   []tiff.Rational
	)
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if num, den, ok := strings.Cut(f, "/"); ok {
			r, err := parseRational(num, den)
			if err != nil {
				return nil, err
			}
			rats = append(rats, r)
			continue
		}
		if n, err := strconv.ParseInt(f, 0, 64); err == nil {
			ints = append(ints, n)
			floats = append(floats, float64(n))
			continue
		}
		if x, err := strconv.ParseFloat(f, 64); err == nil {
			floats = append(floats, x)
			continue
		}
		return s, nil
	}

	switch {
	case len(rats) == len(fields):
		if len(rats) == 1 {
			return rats[0], nil
		}
		return rats, nil
	case len(ints) == len(fields):
		if len(ints) == 1 {
			return ints[0], nil
		}
		return ints, nil
	case len(floats) == len(fields):
		if len(floats) == 1 {
			return floats[0], nil
		}
		return floats, nil
	}
	return nil, errors.Errorf("%q mixes rationals and numbers", s)
}

// parseRational returns an unsigned rational unless a term is negative.
// Terms must fit the 32-bit encoding of the chosen type.
func parseRational(num, den string) (tiff.Rational, error) {
	num, den = strings.TrimSpace(num), strings.TrimSpace(den)
	if strings.HasPrefix(num, "-") || strings.HasPrefix(den, "-") {
		n, err := strconv.ParseInt(num, 10, 32)
		if err != nil {
			return tiff.Rational{}, errors.Wrap(err, "signed rational numerator")
		}
		d, err := strconv.ParseInt(den, 10, 32)
		if err != nil {
			return tiff.Rational{}, errors.Wrap(err, "signed rational denominator")
		}
		return tiff.NewSignedRational(int32(n), int32(d)), nil
	}
	n, err := strconv.ParseUint(num, 10, 32)
	if err != nil {
		return tiff.Rational{}, errors.Wrap(err, "rational numerator")
	}
	d, err := strconv.ParseUint(den, 10, 32)
	if err != nil {
		return tiff.Rational{}, errors.Wrap(err, "rational denominator")
	}
	return tiff.NewRational(uint32(n), uint32(d)), nil
}
