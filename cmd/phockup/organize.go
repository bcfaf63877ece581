package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bshomar/phockup/pkg/config"
	"github.com/bshomar/phockup/pkg/copy"
	"github.com/bshomar/phockup/pkg/logging"
	"github.com/bshomar/phockup/pkg/organize"
	"github.com/bshomar/phockup/pkg/plan"
	"github.com/bshomar/phockup/pkg/reconcile"
	"github.com/bshomar/phockup/pkg/report"
	"github.com/bshomar/phockup/pkg/scan"
)

func newOrganizeCmd(opts *options) *cobra.Command {
	v := &flagValues{}

	organizeCmd := &cobra.Command{
		Use:   "organize [source] [destination]",
		Short: "Organize media files from source to destination",
		Long: "Copy (or move with --move) every file under source into destination. Photos and videos go to " +
			"date folders and are renamed YYYYMMDD-HHMMSS.ext; identical files are skipped; everything else lands in 'unknown'.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, v)
			if err != nil {
				return err
			}
			cfg.InputDirectory = args[0]
			cfg.OutputDirectory = args[1]

			if err := cfg.Validate(); err != nil {
				return err
			}
			return runOrganize(cmd, cfg)
		},
	}

	addNamingFlags(organizeCmd, v)
	addPlacementFlags(organizeCmd, v)

	return organizeCmd
}

func runOrganize(cmd *cobra.Command, cfg config.Config) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, closeLog, err := logging.New(logging.Options{
		File:    cfg.LogFile,
		Verbose: cfg.Verbose,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer closeLog()

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	input, err := filepath.Abs(cfg.InputDirectory)
	if err != nil {
		return err
	}
	output, err := filepath.Abs(cfg.OutputDirectory)
	if err != nil {
		return err
	}

	// Unreadable entries are skipped and reported as errors.
	var unreadable []organize.Result
	scanOpts := scan.DefaultOptions()
	scanOpts.OnError = func(p string, err error) {
		unreadable = append(unreadable, organize.Result{
			Source:  filepath.Join(input, filepath.FromSlash(p)),
			Outcome: organize.Error,
			Err:     err,
		})
	}

	rel, err := scan.Scan(os.DirFS(input), ".", scanOpts)
	if err != nil {
		return err
	}
	files := make([]string, 0, len(rel))
	for _, r := range rel {
		files = append(files, filepath.Join(input, filepath.FromSlash(r)))
	}

	mode := copy.ModeCopy
	if cfg.Move {
		mode = copy.ModeMove
	}

	orgOpts := organize.Options{
		Planner:    plan.NewPlanner(output, p.layout),
		Extractor:  p.extractor,
		Namer:      p.namer,
		Placer:     reconcile.NewPlacer(p.hasher, mode),
		Resolve:    p.resolve,
		SidecarExt: cfg.SidecarExt(),
		Workers:    cfg.Workers,
		Logger:     &logger,
	}

	var progress *report.Progress
	if cfg.Progress {
		progress = report.NewProgress(cmd.ErrOrStderr(), len(files))
		orgOpts.OnResult = progress.Observe
	}

	logger.Info().Str("input", input).Str("output", output).Int("files", len(files)).Str("mode", mode.String()).Msg("organizing")

	counts, runErr := organize.New(orgOpts).Run(ctx, files)
	for _, r := range unreadable {
		counts.Add(r)
		logger.Error().Str("source", r.Source).Err(r.Err).Msg("unreadable")
	}

	if progress != nil {
		_ = progress.Finish()
		cmd.PrintErrln()
	}
	if errors.Is(runErr, context.Canceled) {
		cmd.Println("Exiting...")
		runErr = nil
	}

	report.Summary(cmd.OutOrStdout(), counts)
	for _, r := range report.Rows(counts) {
		logger.Info().Str("outcome", r.Label).Int("count", r.Count).Float64("percent", r.Percent).Msg("summary")
	}

	return runErr
}
