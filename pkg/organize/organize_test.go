package organize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bshomar/phockup/pkg/copy"
	"github.com/bshomar/phockup/pkg/createdat"
	"github.com/bshomar/phockup/pkg/digest"
	"github.com/bshomar/phockup/pkg/metadata"
	"github.com/bshomar/phockup/pkg/plan"
	"github.com/bshomar/phockup/pkg/reconcile"
)

// fakeExtractor serves canned metadata keyed by source path.
type fakeExtractor map[string]metadata.Map

func (f fakeExtractor) Extract(_ context.Context, path string) (metadata.Map, error) {
	m, ok := f[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, metadata.ErrNoMetadata)
	}
	return m, nil
}

func photo(date string) metadata.Map {
	return metadata.Map{
		metadata.KeyMIMEType:   "image/jpeg",
		metadata.KeyCreateDate: date,
	}
}

type setup struct {
	in, out string
	meta    fakeExtractor
	mode    copy.Mode
	namer   plan.Namer
	workers int
	logger  *zerolog.Logger
	results []Result
}

func newSetup(t *testing.T) *setup {
	t.Helper()
	return &setup{in: t.TempDir(), out: t.TempDir(), meta: fakeExtractor{}}
}

func (s *setup) file(t *testing.T, rel, content string, m metadata.Map) string {
	t.Helper()
	p := filepath.Join(s.in, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if m != nil {
		s.meta[p] = m
	}
	return p
}

func (s *setup) organizer() *Organizer {
	return New(Options{
		Planner:    plan.NewPlanner(s.out, plan.MustParseLayout(plan.DefaultLayout)),
		Extractor:  s.meta,
		Namer:      s.namer,
		Placer:     reconcile.NewPlacer(digest.New(digest.SHA256), s.mode),
		SidecarExt: reconcile.DefaultSidecarExt,
		Workers:    s.workers,
		Logger:     s.logger,
		OnResult:   func(r Result) { s.results = append(s.results, r) },
	})
}

func (s *setup) run(t *testing.T, files ...string) Counts {
	t.Helper()
	counts, err := s.organizer().Run(context.Background(), files)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return counts
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestProcess_TimestampCopy(t *testing.T) {
	s := newSetup(t)
	src := s.file(t, "IMG_0001.JPG", "one", photo("2021:05:04 10:11:12"))

	res := s.organizer().Process(context.Background(), src)
	if res.Outcome != Copied || res.Err != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	want := filepath.Join(s.out, "2021", "05", "04", "20210504-101112.jpg")
	if res.Target != want {
		t.Fatalf("target = %s, want %s", res.Target, want)
	}
	if !exists(src) {
		t.Fatalf("copy mode must keep the source")
	}
}

func TestProcess_FilenameFallback(t *testing.T) {
	s := newSetup(t)
	src := s.file(t, "IMG_20160915_123456.jpg", "x", metadata.Map{metadata.KeyMIMEType: "image/jpeg"})

	res := s.organizer().Process(context.Background(), src)
	want := filepath.Join(s.out, "2016", "09", "15", "20160915-123456.jpg")
	if res.Target != want || res.Date.Source != createdat.SourceFilename {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestProcess_UnresolvedMediaKeepsName(t *testing.T) {
	s := newSetup(t)
	src := s.file(t, "Holiday.JPG", "x", metadata.Map{metadata.KeyMIMEType: "image/jpeg"})

	res := s.organizer().Process(context.Background(), src)
	want := filepath.Join(s.out, plan.UnknownDir, "Holiday.JPG")
	if res.Target != want || res.Outcome != Copied {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestProcess_SubsecondsCannotLeaveDateDirectory(t *testing.T) {
	s := newSetup(t)
	src := s.file(t, "IMG.jpg", "x", photo("2021:05:04 10:11:12./../../escaped"))

	res := s.organizer().Process(context.Background(), src)
	want := filepath.Join(s.out, plan.UnknownDir, "IMG.jpg")
	if res.Outcome != Copied || res.Target != want {
		t.Fatalf("unexpected result %+v", res)
	}
	if exists(filepath.Join(s.out, "escaped.jpg")) || exists(filepath.Join(filepath.Dir(s.out), "escaped.jpg")) {
		t.Fatalf("file written outside its directory")
	}
}

func TestPlan_MatchesProcess(t *testing.T) {
	s := newSetup(t)
	src := s.file(t, "IMG_0001.JPG", "one", photo("2021:05:04 10:11:12.5"))
	xmp := s.file(t, "IMG_0001.JPG.xmp", "xmp", nil)
	o := s.organizer()

	pl, err := o.Plan(context.Background(), src)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !pl.Media || pl.Sidecar || pl.Date.Source != createdat.SourceMetadata {
		t.Fatalf("unexpected plan %+v", pl)
	}
	if exists(pl.Dir) {
		t.Fatalf("Plan must not create %s", pl.Dir)
	}

	res := o.Process(context.Background(), src)
	if res.Target != pl.Target() {
		t.Fatalf("Process target %s, planned %s", res.Target, pl.Target())
	}

	side, err := o.Plan(context.Background(), xmp)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !side.Sidecar || side.Name != "" {
		t.Fatalf("unexpected sidecar plan %+v", side)
	}
}

func TestProcess_NonMediaGoesToUnknown(t *testing.T) {
	s := newSetup(t)
	src := s.file(t, "notes.txt", "text", nil)

	res := s.organizer().Process(context.Background(), src)
	want := filepath.Join(s.out, plan.UnknownDir, "notes.txt")
	if res.Target != want || res.Outcome != Copied {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestProcess_SidecarFileIsOther(t *testing.T) {
	s := newSetup(t)
	src := s.file(t, "photo.jpg.xmp", "xmp", nil)

	res := s.organizer().Process(context.Background(), src)
	if res.Outcome != Other || res.Target != "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !exists(src) {
		t.Fatalf("sidecar must be left untouched")
	}
}

func TestProcess_SidecarFollowsSuffix(t *testing.T) {
	s := newSetup(t)
	s.mode = copy.ModeMove
	a := s.file(t, "a/photo.jpg", "first", photo("2021:05:04 10:11:12"))
	b := s.file(t, "b/photo.jpg", "second", photo("2021:05:04 10:11:12"))
	xmp := s.file(t, "b/photo.jpg.xmp", "xmp", nil)

	o := s.organizer()
	if r := o.Process(context.Background(), a); r.Outcome != Moved {
		t.Fatalf("unexpected result %+v", r)
	}
	r := o.Process(context.Background(), b)
	dir := filepath.Join(s.out, "2021", "05", "04")
	if r.Target != filepath.Join(dir, "20210504-101112-2.jpg") {
		t.Fatalf("unexpected target %s", r.Target)
	}
	if r.Sidecar != filepath.Join(dir, "20210504-101112-2.jpg.xmp") {
		t.Fatalf("unexpected sidecar %q", r.Sidecar)
	}
	if exists(xmp) || exists(b) {
		t.Fatalf("move mode must remove the sources")
	}
}

func TestProcess_MoveDuplicateLeavesSource(t *testing.T) {
	s := newSetup(t)
	s.mode = copy.ModeMove
	a := s.file(t, "a/x.jpg", "same", photo("2021:05:04 10:11:12"))
	b := s.file(t, "b/x.jpg", "same", photo("2021:05:04 10:11:12"))

	counts := s.run(t, a, b)
	if counts.Moved != 1 || counts.Duplicate != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}
	if !exists(b) {
		t.Fatalf("duplicate source must stay in place")
	}
}

func TestProcess_DigestRename(t *testing.T) {
	s := newSetup(t)
	s.namer = plan.DigestNamer{Hasher: digest.New(digest.SHA256)}
	src := s.file(t, "IMG.JPG", "content", metadata.Map{
		metadata.KeyMIMEType:       "image/jpeg",
		metadata.KeyFileModifyDate: "2020:01:02 03:04:05+00:00",
	})
	// Sidecar names are not rewritten in digest mode.
	xmp := s.file(t, "IMG.JPG.xmp", "xmp", nil)

	sum, err := digest.New(digest.SHA256).Reader(strings.NewReader("content"))
	if err != nil {
		t.Fatal(err)
	}

	o := s.organizer()
	res := o.Process(context.Background(), src)
	want := filepath.Join(s.out, "2020", "01", "02", sum+".JPG")
	if res.Target != want || res.Outcome != Copied {
		t.Fatalf("unexpected result %+v, want target %s", res, want)
	}
	if res.Sidecar != "" {
		t.Fatalf("digest mode must not relocate sidecars")
	}

	if again := o.Process(context.Background(), src); again.Outcome != Duplicate {
		t.Fatalf("expected duplicate, got %+v", again)
	}

	if r := o.Process(context.Background(), xmp); r.Outcome != Copied {
		t.Fatalf("expected sidecar to be organized as a plain file, got %+v", r)
	}
}

func TestRun_SecondRunOnlyDuplicates(t *testing.T) {
	s := newSetup(t)
	files := []string{
		s.file(t, "a.jpg", "a", photo("2021:05:04 10:11:12")),
		s.file(t, "b.jpg", "b", photo("2021:05:04 10:11:12")),
		s.file(t, "c.txt", "c", nil),
	}

	first := s.run(t, files...)
	if first.Copied != 3 || first.Total() != 3 {
		t.Fatalf("unexpected first run %+v", first)
	}

	second := s.run(t, files...)
	if second.Duplicate != 3 || second.Total() != 3 {
		t.Fatalf("unexpected second run %+v", second)
	}
	if len(s.results) != 6 {
		t.Fatalf("expected 6 callbacks, got %d", len(s.results))
	}
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	s := newSetup(t)
	s.workers = 4

	var files []string
	for i := 0; i < 10; i++ {
		content := fmt.Sprintf("content %02d", i)
		for _, dir := range []string{"x", "y"} {
			files = append(files, s.file(t, fmt.Sprintf("%s/%d.jpg", dir, i), content, photo("2021:05:04 10:11:12")))
		}
	}

	counts := s.run(t, files...)
	if counts.Copied != 10 || counts.Duplicate != 10 {
		t.Fatalf("unexpected counts %+v", counts)
	}

	entries, err := os.ReadDir(filepath.Join(s.out, "2021", "05", "04"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 10 {
		t.Fatalf("expected 10 files, got %d", len(entries))
	}
}

func TestRun_PerFileErrorIsIsolated(t *testing.T) {
	s := newSetup(t)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	s.logger = &logger

	missing := filepath.Join(s.in, "missing.jpg")
	s.meta[missing] = photo("2021:05:04 10:11:12")
	ok := s.file(t, "ok.jpg", "ok", photo("2022:01:01 00:00:00"))

	counts := s.run(t, missing, ok)
	if counts.Error != 1 || counts.Copied != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}
	if len(counts.Errors) != 1 || counts.Errors[0] != missing {
		t.Fatalf("unexpected error list %v", counts.Errors)
	}
	if !strings.Contains(buf.String(), "files with errors") {
		t.Fatalf("expected error list in log, got %s", buf.String())
	}
}

func TestRun_Cancelled(t *testing.T) {
	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			s := newSetup(t)
			s.workers = workers
			src := s.file(t, "a.jpg", "a", photo("2021:05:04 10:11:12"))

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			counts, err := s.organizer().Run(ctx, []string{src})
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("expected context.Canceled, got %v", err)
			}
			if counts.Total() != 0 {
				t.Fatalf("expected nothing processed, got %+v", counts)
			}
		})
	}
}

func TestRun_DirErrorIsFatal(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	s := newSetup(t)
	a := s.file(t, "a.jpg", "a", photo("2021:05:04 10:11:12"))
	b := s.file(t, "b.jpg", "b", photo("2021:05:04 10:11:12"))

	if err := os.Chmod(s.out, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(s.out, 0o755) })

	counts, err := s.organizer().Run(context.Background(), []string{a, b})
	var dirErr *plan.DirError
	if !errors.As(err, &dirErr) {
		t.Fatalf("expected *plan.DirError, got %v", err)
	}
	if counts.Total() != 1 || counts.Error != 1 {
		t.Fatalf("expected the run to stop after the first file, got %+v", counts)
	}
}

func TestCounts(t *testing.T) {
	var c Counts
	for _, o := range []Outcome{Copied, Copied, Moved, Duplicate, Error, Other} {
		c.Add(Result{Source: string(o), Outcome: o})
	}
	if c.Total() != 6 {
		t.Fatalf("Total() = %d", c.Total())
	}
	for o, want := range map[Outcome]int{Copied: 2, Moved: 1, Duplicate: 1, Error: 1, Other: 1} {
		if got := c.Get(o); got != want {
			t.Errorf("Get(%s) = %d, want %d", o, got, want)
		}
	}
}
