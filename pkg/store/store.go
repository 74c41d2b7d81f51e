// Package store reads and writes documents as self-describing files. The
// default format is MessagePack; JSON is available for inspection and
// diffs. Both carry the same tagged records.
package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/zcad/pkg/doc"
	"github.com/chazu/zcad/pkg/entity"
	"github.com/chazu/zcad/pkg/logging"
	"github.com/google/uuid"
	"github.com/ugorji/go/codec"
)

// Version is the file format version written by Encode. Decode accepts
// any version from 1 up to Version.
const Version = 1

// Format selects the encoding.
type Format int

const (
	Msgpack Format = iota
	JSON
)

func (f Format) String() string {
	switch f {
	case Msgpack:
		return "msgpack"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat is the inverse of Format.String.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "msgpack", "mp":
		return Msgpack, nil
	case "json":
		return JSON, nil
	}
	return 0, fmt.Errorf("store: unknown format %q", s)
}

// FormatForPath picks JSON for .json files and MessagePack otherwise.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return Msgpack
}

func handle(f Format) codec.Handle {
	if f == JSON {
		h := &codec.JsonHandle{Indent: 2, HTMLCharsAsIs: true}
		h.ErrorIfNoField = true
		return h
	}
	h := &codec.MsgpackHandle{WriteExt: true}
	h.ErrorIfNoField = true
	return h
}

// ---------------------------------------------------------------------------
// File layout
// ---------------------------------------------------------------------------

type file struct {
	Version     int             `codec:"version"`
	Meta        meta            `codec:"meta"`
	Layers      []entity.Layer  `codec:"layers"`
	Current     entity.EntityID `codec:"current"`
	Entities    []record        `codec:"entities"`
	Views       []entity.View   `codec:"views,omitempty"`
	Generations []uint32        `codec:"generations,omitempty"`
	Free        []uint64        `codec:"free,omitempty"`
}

type meta struct {
	ID       string `codec:"id"`
	Title    string `codec:"title"`
	Units    string `codec:"units"`
	Created  int64  `codec:"created"`
	Modified int64  `codec:"modified"`
}

type record struct {
	ID         entity.EntityID   `codec:"id"`
	Layer      entity.EntityID   `codec:"layer"`
	Properties entity.Properties `codec:"props"`
	Visible    bool              `codec:"visible"`
	Locked     bool              `codec:"locked,omitempty"`
	Shape      shape             `codec:"shape"`
}

func toFile(a doc.Archive) file {
	f := file{
		Version: Version,
		Meta: meta{
			ID:       a.Meta.ID.String(),
			Title:    a.Meta.Title,
			Units:    a.Meta.Units,
			Created:  a.Meta.Created.UnixNano(),
			Modified: a.Meta.Modified.UnixNano(),
		},
		Layers:      a.Layers,
		Current:     a.CurrentLayer,
		Entities:    make([]record, len(a.Entities)),
		Views:       a.Views,
		Generations: a.Generations,
		Free:        a.Free,
	}
	for i, e := range a.Entities {
		f.Entities[i] = record{
			ID:         e.ID,
			Layer:      e.Layer,
			Properties: e.Properties,
			Visible:    e.Visible,
			Locked:     e.Locked,
			Shape:      shapeOf(e.Geometry),
		}
	}
	return f
}

func (f file) archive() (doc.Archive, error) {
	if f.Version < 1 || f.Version > Version {
		return doc.Archive{}, fmt.Errorf("store: unsupported format version %d (want 1..%d)", f.Version, Version)
	}
	a := doc.Archive{
		Meta: doc.Metadata{
			Title:    f.Meta.Title,
			Units:    f.Meta.Units,
			Created:  time.Unix(0, f.Meta.Created).UTC(),
			Modified: time.Unix(0, f.Meta.Modified).UTC(),
		},
		Layers:       f.Layers,
		CurrentLayer: f.Current,
		Entities:     make([]entity.Entity, len(f.Entities)),
		Views:        f.Views,
		Generations:  f.Generations,
		Free:         f.Free,
	}
	if f.Meta.ID != "" {
		id, err := uuid.Parse(f.Meta.ID)
		if err != nil {
			return doc.Archive{}, fmt.Errorf("store: document id: %w", err)
		}
		a.Meta.ID = id
	}
	for i, r := range f.Entities {
		g, err := r.Shape.geometry()
		if err != nil {
			return doc.Archive{}, fmt.Errorf("store: entity %v: %w", r.ID, err)
		}
		a.Entities[i] = entity.Entity{
			ID:         r.ID,
			Geometry:   g,
			Properties: r.Properties,
			Layer:      r.Layer,
			Visible:    r.Visible,
			Locked:     r.Locked,
		}
	}
	return a, nil
}

// ---------------------------------------------------------------------------
// Encode / Decode
// ---------------------------------------------------------------------------

// Encode writes a to w.
func Encode(w io.Writer, a doc.Archive, f Format) error {
	if err := codec.NewEncoder(w, handle(f)).Encode(toFile(a)); err != nil {
		return fmt.Errorf("store: encode %s: %w", f, err)
	}
	return nil
}

// Decode reads an archive from r.
func Decode(r io.Reader, f Format) (doc.Archive, error) {
	var v file
	if err := codec.NewDecoder(r, handle(f)).Decode(&v); err != nil {
		return doc.Archive{}, fmt.Errorf("store: decode %s: %w", f, err)
	}
	return v.archive()
}

// Save writes d to path, choosing the format from the extension. The file
// is written beside path and renamed into place, so a failed save leaves
// any previous file intact.
func Save(path string, d *doc.Document) (err error) {
	f := FormatForPath(path)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	a := d.Export()
	if err := Encode(tmp, a, f); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	logging.Logger().Info("store: saved", "path", path, "format", f, "entities", len(a.Entities))
	return nil
}

// Open reads path into a new document built with opts.
func Open(path string, opts ...doc.Option) (*doc.Document, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	defer fh.Close()

	a, err := Decode(fh, FormatForPath(path))
	if err != nil {
		return nil, err
	}
	d, err := doc.New(opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Load(a); err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	logging.Logger().Info("store: opened", "path", path, "entities", len(a.Entities))
	return d, nil
}
