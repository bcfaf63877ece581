package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bshomar/phockup/pkg/organize"
	"github.com/bshomar/phockup/pkg/plan"
	"github.com/bshomar/phockup/pkg/scan"
)

type scanRecord struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Media      bool   `json:"media"`
	Sidecar    bool   `json:"sidecar,omitempty"`
	DateSource string `json:"date_source"`
	Error      string `json:"error,omitempty"`
}

func newScanCmd(opts *options) *cobra.Command {
	var (
		maxDepth int
		asJSON   bool
	)
	v := &flagValues{}

	scanCmd := &cobra.Command{
		Use:   "scan [directory] [destination]",
		Short: "Show where files would be organized",
		Long:  "Scan a directory and print, for every file, the path it would be organized to (relative to destination when it is omitted). Nothing is written.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, v)
			if err != nil {
				return err
			}
			if err := cfg.ValidateOptions(); err != nil {
				return err
			}

			directory := args[0]
			dest := ""
			if len(args) == 2 {
				dest = args[1]
			}

			p, err := newPipeline(cfg)
			if err != nil {
				return err
			}
			defer p.close()

			scanOpts := scan.DefaultOptions()
			scanOpts.MaxDepth = maxDepth

			matches, err := scan.Scan(os.DirFS(directory), ".", scanOpts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			org := organize.New(organize.Options{
				Planner:    plan.NewPlanner(dest, p.layout),
				Extractor:  p.extractor,
				Namer:      p.namer,
				Resolve:    p.resolve,
				SidecarExt: cfg.SidecarExt(),
			})

			records := make([]scanRecord, 0, len(matches))
			for _, match := range matches {
				if ctx.Err() != nil {
					break
				}
				records = append(records, planOne(ctx, org, directory, match))
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			for _, r := range records {
				switch {
				case r.Error != "":
					cmd.Printf("%s -> error: %s\n", r.Source, r.Error)
				case r.Sidecar:
					cmd.Printf("%s -> follows its photo\n", r.Source)
				default:
					cmd.Printf("%s -> %s\n", r.Source, r.Target)
				}
			}

			if opts.verbose {
				cmd.PrintErrf("found %d files\n", len(records))
			}

			return nil
		},
	}

	addNamingFlags(scanCmd, v)
	scanCmd.Flags().IntVar(&maxDepth, "max-depth", -1, "maximum recursion depth (0 = no recursion)")
	scanCmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")

	return scanCmd
}

func planOne(ctx context.Context, org *organize.Organizer, root, rel string) scanRecord {
	rec := scanRecord{Source: rel}

	pl, err := org.Plan(ctx, filepath.Join(root, filepath.FromSlash(rel)))
	rec.Media = pl.Media
	rec.Sidecar = pl.Sidecar
	rec.DateSource = string(pl.Date.Source)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}
	if !pl.Sidecar {
		rec.Target = pl.Target()
	}
	return rec
}
