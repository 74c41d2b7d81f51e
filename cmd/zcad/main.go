// Command zcad runs drawing scripts against a document and saves the
// result.
//
//	zcad -open part.zcad -script edits.zlisp -save part.zcad
//
// With no -open a new document is created. -script - reads the script from
// standard input.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chazu/zcad/pkg/config"
	"github.com/chazu/zcad/pkg/doc"
	"github.com/chazu/zcad/pkg/engine"
	"github.com/chazu/zcad/pkg/logging"
	"github.com/chazu/zcad/pkg/store"
	"github.com/chazu/zcad/pkg/tessellate"
	"github.com/pkg/profile"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "zcad:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("zcad", flag.ContinueOnError)
	var (
		cfgPath  = fs.String("config", "", "TOML settings file")
		openPath = fs.String("open", "", "document to load")
		script   = fs.String("script", "", "script file to evaluate, - for stdin")
		savePath = fs.String("save", "", "write the document here (.json for JSON, otherwise msgpack)")
		title    = fs.String("title", "", "title for a new document")
		prof     = fs.String("profile", "", "write a cpu or mem profile to the current directory")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *cfgPath != "" {
		c, err := config.Load(*cfgPath)
		if err != nil {
			return err
		}
		cfg = c
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	switch *prof {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile %q, want cpu or mem", *prof)
	}

	var d *doc.Document
	if *openPath != "" {
		d, err = store.Open(*openPath, doc.WithConfig(cfg))
	} else {
		d, err = doc.New(doc.WithConfig(cfg), doc.WithTitle(*title))
	}
	if err != nil {
		return err
	}

	if *script != "" {
		src, err := readScript(*script, stdin)
		if err != nil {
			return err
		}
		res, evalErrs, err := engine.NewEngine(d).Evaluate(src)
		if err != nil {
			return err
		}
		if len(evalErrs) > 0 {
			for _, e := range evalErrs {
				fmt.Fprintln(os.Stderr, e.Error())
			}
			return fmt.Errorf("script failed with %d error(s); document unchanged", len(evalErrs))
		}
		fmt.Fprintf(stdout, "=> %s (%d created)\n", res.Value, len(res.Created))
	}

	if r := d.Validate(); !r.OK() {
		for _, e := range r.Errors {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		return fmt.Errorf("document failed validation with %d error(s)", len(r.Errors))
	}
	if err := summarize(stdout, d); err != nil {
		return err
	}

	if *savePath != "" {
		return store.Save(*savePath, d)
	}
	return nil
}

func readScript(path string, stdin io.Reader) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading script: %w", err)
	}
	return string(b), nil
}

// summarize prints the entity count, the drawing extents and the size of
// its tessellation.
func summarize(w io.Writer, d *doc.Document) error {
	box, ok := d.Extents()
	if !ok {
		fmt.Fprintf(w, "%d entities, %d layers\n", d.Len(), len(d.Layers()))
		return nil
	}
	cfg := d.Config()
	strips, err := tessellate.Tessellate(d.Snapshot(box), cfg.ChordTolerance, cfg.Workers)
	if err != nil {
		return err
	}
	segs := 0
	for _, s := range strips {
		segs += s.SegmentCount()
	}
	fmt.Fprintf(w, "%d entities, %d layers, extents (%g,%g)-(%g,%g), %d segments shown\n",
		d.Len(), len(d.Layers()), box.Min.X, box.Min.Y, box.Max.X, box.Max.Y, segs)
	return nil
}
