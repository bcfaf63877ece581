package scan

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
)

type Options struct {
	MaxDepth int

	// Extensions restricts the scan to these extensions. Empty means every
	// regular file.
	Extensions []string
	// Ignore lists base names that are never returned.
	Ignore []string

	// OnError is called for an entry below root that cannot be read. The
	// entry is skipped, and so is the whole subtree of an unreadable
	// directory. A nil OnError skips silently.
	OnError func(path string, err error)
}

// DefaultIgnore holds OS bookkeeping files that are never media.
var DefaultIgnore = []string{".DS_Store", "Thumbs.db"}

func DefaultOptions() Options {
	return Options{
		MaxDepth: -1,
		Ignore:   DefaultIgnore,
	}
}

type Record struct {
	Path          string    `json:"path"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	ModTime       time.Time `json:"mod_time"`
}

// Scan returns the slash separated paths, relative to root, of every file
// selected by opts in natural order.
func Scan(fsys fs.FS, root string, opts Options) ([]string, error) {
	records, err := ScanRecords(fsys, root, opts)
	if err != nil {
		return nil, err
	}

	matches := make([]string, 0, len(records))
	for _, r := range records {
		matches = append(matches, r.Path)
	}
	return matches, nil
}

func ScanRecords(fsys fs.FS, root string, opts Options) ([]Record, error) {
	if opts.MaxDepth < -1 {
		return nil, fs.ErrInvalid
	}

	exts := normalizeExts(opts.Extensions)
	ignore := make(map[string]bool, len(opts.Ignore))
	for _, name := range opts.Ignore {
		ignore[name] = true
	}

	var matches []Record

	skip := func(p string, err error) {
		if opts.OnError != nil {
			opts.OnError(p, err)
		}
	}

	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d == nil || p == root {
				return err
			}
			skip(relative(root, p), err)
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel := relative(root, p)
		if d.IsDir() {
			if rel != "." && opts.MaxDepth >= 0 && depth(rel) > opts.MaxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if rel == "." || !d.Type().IsRegular() {
			return nil
		}

		if opts.MaxDepth >= 0 && depth(rel) > opts.MaxDepth {
			return nil
		}
		if ignore[d.Name()] {
			return nil
		}
		if len(exts) > 0 && !exts[strings.ToLower(path.Ext(rel))] {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			skip(rel, infoErr)
			return nil
		}

		matches = append(matches, Record{
			Path:          rel,
			FileSizeBytes: info.Size(),
			ModTime:       info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return natural.Less(matches[i].Path, matches[j].Path)
	})
	return matches, nil
}

func relative(root, p string) string {
	if p == root {
		return "."
	}
	if root == "." {
		return p
	}
	return strings.TrimPrefix(p, strings.TrimSuffix(root, "/")+"/")
}

func normalizeExts(exts []string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, ext := range exts {
		e := strings.TrimSpace(strings.ToLower(ext))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		m[e] = true
	}
	return m
}

func depth(rel string) int {
	rel = path.Clean(rel)
	if rel == "." {
		return 0
	}
	return strings.Count(rel, "/")
}
