package metadata

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Field names as printed by exiftool's default text output. Every extractor
// normalizes its keys to these so the date resolver sees one vocabulary.
const (
	KeyCreateDate       = "Create Date"
	KeyDateTimeOriginal = "Date/Time Original"
	KeyMediaCreated     = "Media created"
	KeyFileModifyDate   = "File Modification Date/Time"
	KeyMIMEType         = "MIME Type"
)

// ErrNoMetadata is returned when a file's metadata cannot be obtained: the tool
// failed, the output was unusable or the format is unsupported.
var ErrNoMetadata = errors.New("no metadata")

// Map holds the metadata fields of one file.
type Map map[string]string

// Get returns the trimmed value for key and whether it is present and non-empty.
func (m Map) Get(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Extractor produces the metadata map for a single file.
//
// Implementations return an error wrapping ErrNoMetadata when nothing usable
// could be read. Callers treat that as "no metadata", not as a failure.
type Extractor interface {
	Extract(ctx context.Context, path string) (Map, error)
}

// Parse converts "key: value" text into a Map. Keys and values are trimmed,
// values may contain colons (only the first colon splits) and lines without a
// colon are ignored.
func Parse(text string) Map {
	m := make(Map)
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		m[key] = strings.TrimSpace(value)
	}
	return m
}

var reMediaMIME = regexp.MustCompile(`^(image/.+|video/.+|application/vnd\.adobe\.photoshop)$`)

// IsImageOrVideo reports whether the MIME Type field marks the file as a photo
// or video. A nil map or a missing MIME Type is "other".
func IsImageOrVideo(m Map) bool {
	if m == nil {
		return false
	}
	mt, ok := m.Get(KeyMIMEType)
	if !ok {
		return false
	}
	return reMediaMIME.MatchString(mt)
}
