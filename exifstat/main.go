// Command exifstat prints, edits and extracts the EXIF metadata of JPEG files
// and raw EXIF blocks.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/exifprofile/exif"
	"github.com/rwcarlsen/exifprofile/mknote"
)

type config struct {
	json      bool
	verbose   bool
	mknote    bool
	parts     string
	xres      float64
	yres      float64
	set       listFlag
	rm        listFlag
	out       string
	app1      bool
	thumb     string
	thumbSize int
}

func main() {
	var cfg config
	flag.BoolVar(&cfg.json, "json", false, "print values as JSON")
	flag.BoolVar(&cfg.verbose, "v", false, "log parse diagnostics")
	flag.BoolVar(&cfg.mknote, "mknote", false, "try to parse makernote data")
	flag.StringVar(&cfg.parts, "parts", "all", "parts written by -o: ifd0,exif,gps,thumbnail, all or none")
	flag.Float64Var(&cfg.xres, "xres", 0, "update an existing XResolution")
	flag.Float64Var(&cfg.yres, "yres", 0, "update an existing YResolution")
	flag.Var(&cfg.set, "set", "set a value, as Tag=value (repeatable)")
	flag.Var(&cfg.rm, "rm", "remove a tag (repeatable)")
	flag.StringVar(&cfg.out, "o", "", "write the resulting EXIF block to this file")
	flag.BoolVar(&cfg.app1, "app1", false, "wrap the block written by -o in a JPEG APP1 segment")
	flag.StringVar(&cfg.thumb, "thumb", "", "write the embedded thumbnail to this file")
	flag.IntVar(&cfg.thumbSize, "thumbsize", 0, "scale the thumbnail written by -thumb to fit this size and store it as PNG")
	flag.Parse()

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	fnames := flag.Args()
	if len(fnames) > 1 && (cfg.out != "" || cfg.thumb != "") {
		slog.Error("-o and -thumb take a single input file")
		os.Exit(2)
	}

	failed := false
	for _, name := range fnames {
		if err := process(&cfg, name, os.Stdout); err != nil {
			slog.Error("exifstat failed", "file", name, "err", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// load returns the profile of a JPEG file or of a file holding a bare EXIF
// block.
func load(name string) (*exif.Profile, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		return exif.Decode(bytes.NewReader(data))
	}
	return exif.NewProfile(data), nil
}

func process(cfg *config, name string, w io.Writer) error {
	p, err := load(name)
	if err != nil {
		return err
	}

	// maker notes are located in the original block, before any edit
	var note *mknote.Note
	if cfg.mknote {
		note, err = mknote.Decode(p.Bytes())
		if err != nil {
			slog.Warn("no makernote", "file", name, "err", err)
		}
	}

	if err := edit(cfg, p); err != nil {
		return err
	}
	if err := p.Diagnostics(); err != nil {
		slog.Debug("skipped while parsing", "file", name, "err", err)
	}
	if tags := p.InvalidTags(); len(tags) > 0 {
		slog.Info("invalid tags", "file", name, "tags", tags)
	}

	if cfg.json {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", data)
	} else {
		fmt.Fprintf(w, "\n---- Image '%v' ----\n", name)
		if err := p.Walk(walker{w}); err != nil {
			return err
		}
	}
	if note != nil {
		printNote(w, note)
	}

	if cfg.out != "" {
		if err := writeBlock(cfg, p); err != nil {
			return err
		}
	}
	if cfg.thumb != "" {
		if err := writeThumb(cfg, p); err != nil {
			return err
		}
	}
	return nil
}

// edit applies the -parts, -rm, -set and resolution flags.
func edit(cfg *config, p *exif.Profile) error {
	parts, err := exif.ParseParts(cfg.parts)
	if err != nil {
		return err
	}
	p.SetParts(parts)

	for _, name := range cfg.rm {
		tag, err := parseTag(name)
		if err != nil {
			return err
		}
		if !p.RemoveValue(tag) {
			slog.Debug("tag not present", "tag", tag)
		}
	}
	for _, kv := range cfg.set {
		tag, v, err := parseAssignment(kv)
		if err != nil {
			return err
		}
		if err := p.SetValue(tag, v); err != nil {
			return errors.Wrapf(err, "-set %s", kv)
		}
	}
	if cfg.xres > 0 || cfg.yres > 0 {
		if err := p.Sync(resolution{p: p, x: cfg.xres, y: cfg.yres}); err != nil {
			return err
		}
	}
	return nil
}

// resolution keeps the profile's current value for an unset axis.
type resolution struct {
	p    *exif.Profile
	x, y float64
}

func (r resolution) Resolution() (float64, float64) {
	return r.axis(exif.XResolution, r.x), r.axis(exif.YResolution, r.y)
}

func (r resolution) axis(tag exif.Tag, f float64) float64 {
	if f > 0 {
		return f
	}
	if v, ok := r.p.GetValue(tag); ok {
		if cur, err := v.Float(0); err == nil {
			return cur
		}
	}
	return 0
}

func writeBlock(cfg *config, p *exif.Profile) error {
	data := p.Bytes()
	if data == nil {
		slog.Info("nothing to write, EXIF block omitted", "file", cfg.out)
	}
	if cfg.app1 {
		seg, err := exif.APP1(data)
		if err != nil {
			return err
		}
		data = seg
	}
	return errors.Wrap(os.WriteFile(cfg.out, data, 0644), "writing block")
}

type walker struct {
	w io.Writer
}

func (wk walker) Walk(tag exif.Tag, v *exif.Value) error {
	data, _ := v.MarshalJSON()
	fmt.Fprintf(wk.w, "    %v: %v\n", tag, string(data))
	return nil
}

func printNote(w io.Writer, n *mknote.Note) {
	fmt.Fprintf(w, "  makernote (%s):\n", n.Make)
	for _, e := range n.Dir.Entries {
		fmt.Fprintf(w, "    0x%04X %v[%d]\n", e.Tag, e.Type, e.Count)
	}
}
