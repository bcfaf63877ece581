// Package organize runs the per-file pipeline: metadata, date resolution,
// destination planning, naming, placement and sidecar relocation.
package organize

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bshomar/phockup/pkg/copy"
	"github.com/bshomar/phockup/pkg/createdat"
	"github.com/bshomar/phockup/pkg/metadata"
	"github.com/bshomar/phockup/pkg/plan"
	"github.com/bshomar/phockup/pkg/reconcile"
)

// Outcome is the terminal classification of one file.
type Outcome string

const (
	Copied    Outcome = "copied"
	Moved     Outcome = "moved"
	Duplicate Outcome = "duplicate"
	Error     Outcome = "error"
	Other     Outcome = "other"
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{Copied, Moved, Duplicate, Error, Other}

// Result describes what happened to one source file.
type Result struct {
	Source  string
	Target  string
	Sidecar string
	Outcome Outcome
	Date    createdat.Result
	Err     error
}

// Options configures an Organizer.
type Options struct {
	Planner   *plan.Planner
	Extractor metadata.Extractor
	Namer     plan.Namer
	Placer    *reconcile.Placer
	Resolve   createdat.Options

	// SidecarExt is the companion file extension. Empty disables sidecar
	// handling.
	SidecarExt string

	// Workers > 1 processes files in parallel.
	Workers int

	Logger *zerolog.Logger

	// OnResult is called once per processed file, from a single goroutine.
	OnResult func(Result)
}

// Organizer processes files into the destination tree.
type Organizer struct {
	planner    *plan.Planner
	extractor  metadata.Extractor
	namer      plan.Namer
	placer     *reconcile.Placer
	resolve    createdat.Options
	sidecarExt string
	workers    int
	log        zerolog.Logger
	onResult   func(Result)
}

// New returns an Organizer for opts.
func New(opts Options) *Organizer {
	o := &Organizer{
		planner:    opts.Planner,
		extractor:  opts.Extractor,
		namer:      opts.Namer,
		placer:     opts.Placer,
		resolve:    opts.Resolve,
		sidecarExt: opts.SidecarExt,
		workers:    opts.Workers,
		log:        zerolog.Nop(),
		onResult:   opts.OnResult,
	}
	if opts.Logger != nil {
		o.log = *opts.Logger
	}
	if o.namer == nil {
		o.namer = plan.TimestampNamer{}
	}
	// Content addressed names are always dated, even from the file system.
	if o.namer.ContentAddressed() {
		o.resolve.ModificationFallback = true
	}
	return o
}

// Plan is where a file would go, worked out without touching the output
// tree.
type Plan struct {
	Source string
	Dir    string
	Name   string
	Media  bool
	Date   createdat.Result

	// Sidecar marks a companion file. It is relocated with its photo and
	// never on its own.
	Sidecar bool
}

// Target is the path the file takes when no other file is in the way.
func (p Plan) Target() string {
	return filepath.Join(p.Dir, p.Name)
}

// Plan classifies src, resolves its date and picks its directory and name.
func (o *Organizer) Plan(ctx context.Context, src string) (Plan, error) {
	pl := Plan{Source: src, Date: createdat.Unresolved}

	if !o.namer.ContentAddressed() && o.sidecarExt != "" && filepath.Ext(src) == o.sidecarExt {
		pl.Sidecar = true
		return pl, nil
	}

	// An in-flight file completes even if the run is being cancelled.
	m, err := o.extractor.Extract(context.WithoutCancel(ctx), src)
	if err != nil {
		o.log.Debug().Str("source", src).Err(err).Msg("no metadata")
		m = nil
	}

	pl.Media = metadata.IsImageOrVideo(m)
	if pl.Media {
		pl.Date = createdat.Resolve(src, m, o.resolve)
	}
	pl.Dir = o.planner.Path(pl.Date)

	pl.Name, err = o.namer.Name(src, pl.Date, pl.Media)
	return pl, err
}

// Process handles a single file. Per-file failures are reported through the
// Error outcome and never stop the caller.
func (o *Organizer) Process(ctx context.Context, src string) Result {
	res := Result{Source: src, Date: createdat.Unresolved}
	contentAddressed := o.namer.ContentAddressed()

	p, err := o.Plan(ctx, src)
	res.Date = p.Date
	if err != nil {
		return o.fail(res, err)
	}
	if p.Sidecar {
		res.Outcome = Other
		return res
	}

	dir, err := o.planner.Dir(p.Date)
	if err != nil {
		return o.fail(res, err)
	}

	var pl reconcile.Placement
	if contentAddressed && p.Media {
		pl, err = o.placer.PlaceDigest(src, dir, p.Name)
	} else {
		pl, err = o.placer.Place(src, dir, p.Name)
	}
	if err != nil {
		return o.fail(res, err)
	}

	res.Target = pl.Path
	if pl.Duplicate {
		res.Outcome = Duplicate
		return res
	}
	if o.placer.Mode() == copy.ModeMove {
		res.Outcome = Moved
	} else {
		res.Outcome = Copied
	}

	if !contentAddressed {
		sc, ok, err := o.placer.Associate(src, dir, filepath.Base(pl.Path), o.sidecarExt)
		switch {
		case err != nil:
			o.log.Warn().Str("source", sc.Source).Str("target", sc.Path).Err(err).Msg("sidecar skipped")
		case ok:
			res.Sidecar = sc.Path
			o.log.Debug().Str("source", sc.Source).Str("target", sc.Path).Msg("sidecar")
		}
	}
	return res
}

func (o *Organizer) fail(res Result, err error) Result {
	res.Outcome = Error
	res.Err = err
	return res
}

// Run processes files and returns the tally of outcomes. A directory creation
// failure stops the run and is returned as *plan.DirError. When ctx is
// cancelled no new file is started and ctx.Err() is returned alongside the
// counts gathered so far.
func (o *Organizer) Run(ctx context.Context, files []string) (Counts, error) {
	var (
		counts Counts
		err    error
	)
	if o.workers > 1 {
		err = o.runParallel(ctx, files, &counts)
	} else {
		err = o.runSequential(ctx, files, &counts)
	}

	if len(counts.Errors) > 0 {
		o.log.Info().Strs("files", counts.Errors).Msg("files with errors")
	}
	if err != nil {
		return counts, err
	}
	return counts, ctx.Err()
}

func (o *Organizer) runSequential(ctx context.Context, files []string, counts *Counts) error {
	for _, f := range files {
		if ctx.Err() != nil {
			return nil
		}
		r := o.Process(ctx, f)
		o.record(counts, r)

		var dirErr *plan.DirError
		if errors.As(r.Err, &dirErr) {
			return dirErr
		}
	}
	return nil
}

func (o *Organizer) runParallel(ctx context.Context, files []string, counts *Counts) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan string)
	results := make(chan Result, o.workers)

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				results <- o.Process(runCtx, f)
			}
		}()
	}

	// Send jobs
	go func() {
		defer close(jobs)
		for _, f := range files {
			if runCtx.Err() != nil {
				return
			}
			select {
			case <-runCtx.Done():
				return
			case jobs <- f:
			}
		}
	}()

	// Close results channel when all workers finish
	go func() {
		wg.Wait()
		close(results)
	}()

	var fatal error
	for r := range results {
		o.record(counts, r)

		var dirErr *plan.DirError
		if fatal == nil && errors.As(r.Err, &dirErr) {
			fatal = dirErr
			cancel()
		}
	}
	return fatal
}

func (o *Organizer) record(counts *Counts, r Result) {
	counts.Add(r)

	ev := o.log.Debug()
	if r.Outcome == Error {
		ev = o.log.Error()
	}
	ev.Str("source", r.Source).
		Str("target", r.Target).
		Str("outcome", string(r.Outcome)).
		Str("date_source", string(r.Date.Source)).
		Err(r.Err).
		Msg("processed")

	if o.onResult != nil {
		o.onResult(r)
	}
}
