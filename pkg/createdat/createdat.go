package createdat

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bshomar/phockup/pkg/metadata"
)

// Source describes where a resolved timestamp was derived from.
type Source string

const (
	SourceMetadata     Source = "metadata"
	SourceModification Source = "modification"
	SourceFilename     Source = "filename"
	SourceUnknown      Source = "unknown"
)

// Result is a resolved capture date. Time is only meaningful when Found is
// true; an unresolved result always has an empty Subseconds.
type Result struct {
	Time       time.Time
	Subseconds string
	Source     Source
	Found      bool
}

// Unresolved is the result for files whose date could not be determined.
var Unresolved = Result{Source: SourceUnknown}

// metadataKeys are tried in order; the first non-empty one wins.
var metadataKeys = []string{
	metadata.KeyCreateDate,
	metadata.KeyDateTimeOriginal,
	metadata.KeyMediaCreated,
}

var metadataLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
}

// DefaultPattern matches names such as IMG_20160915_123456.jpg.
var DefaultPattern = regexp.MustCompile(`.*[_-](?P<year>\d{4})(?P<month>\d{2})(?P<day>\d{2})[_-]?(?P<hour>\d{2})(?P<minute>\d{2})(?P<second>\d{2})`)

var patternGroups = []string{"year", "month", "day", "hour", "minute", "second"}

// ErrMissingGroup is returned by CompilePattern when a required named group is
// absent from the expression.
var ErrMissingGroup = errors.New("missing named group")

// CompilePattern compiles a user supplied file name pattern and checks that it
// exposes all of year, month, day, hour, minute and second.
func CompilePattern(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	for _, g := range patternGroups {
		if re.SubexpIndex(g) < 0 {
			return nil, fmt.Errorf("pattern %q: %w %q", expr, ErrMissingGroup, g)
		}
	}
	return re, nil
}

// Options configures Resolve.
type Options struct {
	// Pattern replaces DefaultPattern for file name matching.
	Pattern *regexp.Regexp

	// ModificationFallback also accepts the filesystem modification date
	// reported in the metadata when no capture date field is present.
	ModificationFallback bool
}

// Strategy is one step of the resolution chain. ok reports whether the
// strategy applied; an applied strategy ends the chain even when the value
// could not be parsed.
type Strategy interface {
	Resolve(name string, m metadata.Map) (res Result, ok bool)
}

// Strategies returns the resolution chain for opts.
//
// Capture dates carry no zone and are kept as the wall clock they were
// written with, so they are read in UTC where every clock reading exists.
func Strategies(opts Options) []Strategy {
	loc := time.UTC

	keys := metadataKeys
	if opts.ModificationFallback {
		keys = append(append([]string{}, metadataKeys...), metadata.KeyFileModifyDate)
	}

	pattern := opts.Pattern
	if pattern == nil {
		pattern = DefaultPattern
	}

	return []Strategy{
		fieldStrategy{keys: keys, loc: loc},
		filenameStrategy{pattern: pattern, loc: loc},
	}
}

// Resolve determines the capture date of the file called name from its
// metadata, falling back to the file name.
func Resolve(name string, m metadata.Map, opts Options) Result {
	for _, s := range Strategies(opts) {
		if res, ok := s.Resolve(name, m); ok {
			return res
		}
	}
	return Unresolved
}

type fieldStrategy struct {
	keys []string
	loc  *time.Location
}

func (s fieldStrategy) Resolve(_ string, m metadata.Map) (Result, bool) {
	for _, key := range s.keys {
		v, ok := m.Get(key)
		if !ok {
			continue
		}
		res := parseMetadataDate(v, s.loc)
		if res.Found {
			res.Source = SourceMetadata
			if key == metadata.KeyFileModifyDate {
				res.Source = SourceModification
			}
		}
		return res, true
	}
	return Result{}, false
}

var reZoneSuffix = regexp.MustCompile(`(?:[+-]\d{2}:\d{2}|Z)$`)

var reSubseconds = regexp.MustCompile(`^[0-9A-Za-z]*$`)

// parseMetadataDate parses "YYYY:MM:DD HH:MM:SS[.sub][zone]". The zone is
// dropped and the sub-second fragment is returned verbatim. A fragment that is
// not plain alphanumeric text leaves the value unresolved, since it becomes
// part of a file name.
func parseMetadataDate(v string, loc *time.Location) Result {
	v = reZoneSuffix.ReplaceAllString(strings.TrimSpace(v), "")

	date, sub, _ := strings.Cut(v, ".")
	if !reSubseconds.MatchString(sub) {
		return Unresolved
	}
	for _, layout := range metadataLayouts {
		t, err := time.ParseInLocation(layout, date, loc)
		if err == nil {
			return Result{Time: t, Subseconds: sub, Found: true}
		}
	}
	return Unresolved
}

type filenameStrategy struct {
	pattern *regexp.Regexp
	loc     *time.Location
}

func (s filenameStrategy) Resolve(name string, _ metadata.Map) (Result, bool) {
	t, ok := parseFromFilename(filepath.Base(name), s.pattern, s.loc)
	if !ok {
		return Result{}, false
	}
	return Result{Time: t, Source: SourceFilename, Found: true}, true
}

func parseFromFilename(filename string, pattern *regexp.Regexp, loc *time.Location) (time.Time, bool) {
	m := pattern.FindStringSubmatch(filename)
	if m == nil {
		return time.Time{}, false
	}

	var parts [6]int
	for i, g := range patternGroups {
		idx := pattern.SubexpIndex(g)
		if idx < 0 {
			return time.Time{}, false
		}
		n, err := strconv.Atoi(m[idx])
		if err != nil {
			return time.Time{}, false
		}
		parts[i] = n
	}

	return validDate(parts[0], parts[1], parts[2], parts[3], parts[4], parts[5], loc)
}

// validDate builds a time only if every component is in range; time.Date
// would silently normalize month 13 into the next year.
func validDate(y, mo, d, h, mi, s int, loc *time.Location) (time.Time, bool) {
	if y < 1 || mo < 1 || mo > 12 || d < 1 || h < 0 || h > 23 || mi < 0 || mi > 59 || s < 0 || s > 59 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, h, mi, s, 0, loc)
	if t.Day() != d || int(t.Month()) != mo {
		return time.Time{}, false
	}
	return t, true
}
