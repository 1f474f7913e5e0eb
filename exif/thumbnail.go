package exif

import (
	"bytes"
	"image"
	"io"

	// thumbnails are normally JPEG, the rest show up in the wild
	_ "image/jpeg"
	_ "image/png"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeFunc materializes an image from encoded bytes.
type DecodeFunc func(io.Reader) (image.Image, error)

// DecodeThumbnail decodes any format registered with the image package.
// JPEG, PNG, BMP, TIFF and WebP are registered by this package.
func DecodeThumbnail(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "exif: thumbnail decode failed")
	}
	return img, nil
}

func decodeBytes(decode DecodeFunc, b []byte) (image.Image, error) {
	if decode == nil {
		decode = DecodeThumbnail
	}
	return decode(bytes.NewReader(b))
}
