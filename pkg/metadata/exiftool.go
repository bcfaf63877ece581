package metadata

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/barasher/go-exiftool"
)

// DefaultExifToolBinary is looked up on PATH when no explicit binary is set.
const DefaultExifToolBinary = "exiftool"

// ExifTool runs one exiftool process per file and parses its text output.
type ExifTool struct {
	// Binary overrides the exiftool executable. Empty means DefaultExifToolBinary.
	Binary string
}

func (e ExifTool) binary() string {
	if e.Binary == "" {
		return DefaultExifToolBinary
	}
	return e.Binary
}

// Extract implements Extractor.
func (e ExifTool) Extract(ctx context.Context, path string) (Map, error) {
	out, err := exec.CommandContext(ctx, e.binary(), path).Output()
	if err != nil {
		return nil, fmt.Errorf("exiftool %q: %w: %v", path, ErrNoMetadata, err)
	}

	// exiftool may emit bytes from the file verbatim; undecodable sequences are dropped.
	m := Parse(strings.ToValidUTF8(string(out), ""))
	if len(m) == 0 {
		return nil, fmt.Errorf("exiftool %q: %w: empty output", path, ErrNoMetadata)
	}
	return m, nil
}

// exifToolTagNames maps exiftool's JSON tag names to the display names of its
// text output.
var exifToolTagNames = map[string]string{
	"CreateDate":       KeyCreateDate,
	"DateTimeOriginal": KeyDateTimeOriginal,
	"MediaCreated":     KeyMediaCreated,
	"FileModifyDate":   KeyFileModifyDate,
	"MIMEType":         KeyMIMEType,
}

// StayOpen keeps a single exiftool process alive (-stay_open) for the whole
// run. It is safe for concurrent use. Call Close when done.
type StayOpen struct {
	mu sync.Mutex
	et *exiftool.Exiftool
}

// NewStayOpen starts the persistent exiftool process. An empty binary uses the
// one found on PATH.
func NewStayOpen(binary string) (*StayOpen, error) {
	var opts []func(*exiftool.Exiftool) error
	if binary != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(binary))
	}
	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return &StayOpen{et: et}, nil
}

// Extract implements Extractor.
func (s *StayOpen) Extract(ctx context.Context, path string) (Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	results := s.et.ExtractMetadata(path)
	s.mu.Unlock()

	if len(results) == 0 {
		return nil, fmt.Errorf("exiftool %q: %w: no result", path, ErrNoMetadata)
	}
	if results[0].Err != nil {
		return nil, fmt.Errorf("exiftool %q: %w: %v", path, ErrNoMetadata, results[0].Err)
	}

	m := fieldsToMap(results[0].Fields)
	if len(m) == 0 {
		return nil, fmt.Errorf("exiftool %q: %w: no fields", path, ErrNoMetadata)
	}
	return m, nil
}

// Close stops the exiftool process.
func (s *StayOpen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.et.Close()
}

func fieldsToMap(fields map[string]interface{}) Map {
	m := make(Map, len(fields))
	for name, v := range fields {
		if display, ok := exifToolTagNames[name]; ok {
			name = display
		}
		switch val := v.(type) {
		case string:
			m[name] = strings.TrimSpace(val)
		case nil:
		case []interface{}:
			// lists (keywords and the like) are irrelevant for placement
		default:
			m[name] = fmt.Sprint(val)
		}
	}
	return m
}
