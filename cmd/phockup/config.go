package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bshomar/phockup/pkg/config"
	"github.com/bshomar/phockup/pkg/createdat"
	"github.com/bshomar/phockup/pkg/digest"
	"github.com/bshomar/phockup/pkg/metadata"
	"github.com/bshomar/phockup/pkg/plan"
)

// flagValues receives the command line flags before they are layered over
// the config file.
type flagValues struct {
	config.Config
	noProgress bool
}

func addNamingFlags(cmd *cobra.Command, v *flagValues) {
	d := config.Default()
	fl := cmd.Flags()

	fl.StringVarP(&v.DateFormat, "date", "d", d.DateFormat, "directory layout: YYYY, YY, MM, M, m, DD, DDD and separators")
	fl.StringVarP(&v.Regex, "regex", "r", "", "regex with named groups year, month, day, hour, minute and second for dates in file names")
	fl.BoolVarP(&v.DigestRename, "sha-rename", "s", false, "name media files after their content digest")
	fl.BoolVar(&v.ModificationFallback, "modification-fallback", false, "use the file modification date when no capture date is found")
	fl.StringVar(&v.Hash, "hash", d.Hash, "content digest: sha256 or blake3")
	fl.StringVar(&v.Extractor, "extractor", d.Extractor, "metadata extractor: exiftool, stay-open or native")
	fl.StringVar(&v.ExifTool, "exiftool", d.ExifTool, "exiftool binary")
}

func addPlacementFlags(cmd *cobra.Command, v *flagValues) {
	d := config.Default()
	fl := cmd.Flags()

	fl.BoolVarP(&v.Move, "move", "m", false, "move files instead of copying them")
	fl.StringVarP(&v.LogFile, "log", "l", "", "write a detailed log to this file")
	fl.IntVar(&v.Workers, "workers", d.Workers, "number of files processed in parallel")
	fl.StringVar(&v.SidecarExtension, "sidecar-ext", d.SidecarExtension, "extension of sidecar files kept next to their photo")
	fl.BoolVar(&v.noProgress, "no-progress", false, "do not show the progress bar")
}

// loadConfig layers defaults, the config file and the flags that were set.
func loadConfig(cmd *cobra.Command, opts *options, v *flagValues) (config.Config, error) {
	cfg := config.Default()
	if opts.configFile != "" {
		if _, err := os.Stat(opts.configFile); err != nil {
			return cfg, fmt.Errorf("config file: %w", err)
		}
		cfg.ConfigFile = opts.configFile
	}
	if err := cfg.LoadFile(); err != nil {
		return cfg, err
	}

	fl := cmd.Flags()
	apply := map[string]func(){
		"date":                  func() { cfg.DateFormat = v.DateFormat },
		"regex":                 func() { cfg.Regex = v.Regex },
		"sha-rename":            func() { cfg.DigestRename = v.DigestRename },
		"modification-fallback": func() { cfg.ModificationFallback = v.ModificationFallback },
		"hash":                  func() { cfg.Hash = v.Hash },
		"extractor":             func() { cfg.Extractor = v.Extractor },
		"exiftool":              func() { cfg.ExifTool = v.ExifTool },
		"move":                  func() { cfg.Move = v.Move },
		"log":                   func() { cfg.LogFile = v.LogFile },
		"workers":               func() { cfg.Workers = v.Workers },
		"sidecar-ext":           func() { cfg.SidecarExtension = v.SidecarExtension },
		"no-progress":           func() { cfg.Progress = !v.noProgress },
		"verbose":               func() { cfg.Verbose = opts.verbose },
	}
	for name, fn := range apply {
		if fl.Changed(name) {
			fn()
		}
	}
	return cfg, nil
}

// pipeline holds the pieces shared by organize and scan.
type pipeline struct {
	layout    plan.Layout
	resolve   createdat.Options
	hasher    digest.Hasher
	namer     plan.Namer
	extractor metadata.Extractor
	close     func() error
}

func newPipeline(cfg config.Config) (*pipeline, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	pattern, err := cfg.Pattern()
	if err != nil {
		return nil, err
	}
	alg, err := cfg.Algorithm()
	if err != nil {
		return nil, err
	}

	extractor, closeFn, err := metadata.Open(cfg.Extractor, cfg.ExifTool)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		layout:    layout,
		resolve:   createdat.Options{Pattern: pattern, ModificationFallback: cfg.ModificationFallback},
		hasher:    digest.New(alg),
		namer:     plan.TimestampNamer{},
		extractor: extractor,
		close:     closeFn,
	}
	if cfg.DigestRename {
		p.namer = plan.DigestNamer{Hasher: p.hasher}
		p.resolve.ModificationFallback = true
	}
	return p, nil
}
