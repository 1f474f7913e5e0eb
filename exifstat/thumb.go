package main

import (
	"bytes"
	"image"
	"image/png"
	"os"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/exifprofile/exif"
	"golang.org/x/image/draw"
)

// writeThumb stores the thumbnail as found in the block, or scaled and
// encoded as PNG when -thumbsize is set.
func writeThumb(cfg *config, p *exif.Profile) error {
	if cfg.thumbSize <= 0 {
		b, ok := p.Thumbnail()
		if !ok {
			return errors.New("no thumbnail")
		}
		return errors.Wrap(os.WriteFile(cfg.thumb, b, 0644), "writing thumbnail")
	}

	img, err := p.CreateThumbnail(nil)
	if err != nil {
		return err
	}
	if img == nil {
		return errors.New("no thumbnail")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, fit(img, cfg.thumbSize)); err != nil {
		return errors.Wrap(err, "encoding thumbnail")
	}
	return errors.Wrap(os.WriteFile(cfg.thumb, buf.Bytes(), 0644), "writing thumbnail")
}

// fit scales img down to fit a size x size box, keeping its aspect ratio.
func fit(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		return img
	}
	if w >= h {
		w, h = size, max(1, h*size/w)
	} else {
		w, h = max(1, w*size/h), size
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
