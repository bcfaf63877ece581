package plan

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bshomar/phockup/pkg/createdat"
	"github.com/bshomar/phockup/pkg/digest"
)

// Namer picks the destination file name for a source file.
type Namer interface {
	// Name returns the base name for src. media reports whether the file was
	// classified as photo or video.
	Name(src string, res createdat.Result, media bool) (string, error)
	// ContentAddressed reports whether media names embed the content digest,
	// so an existing file under the same name holds the same content.
	ContentAddressed() bool
}

// TimestampNamer names resolved media files YYYYMMDD-HHMMSS[sub].ext in lower
// case. Anything else keeps its original base name.
type TimestampNamer struct{}

// Name implements Namer.
func (TimestampNamer) Name(src string, res createdat.Result, media bool) (string, error) {
	if !media || !res.Found {
		return filepath.Base(src), nil
	}
	return strings.ToLower(TimestampName(res) + filepath.Ext(src)), nil
}

// ContentAddressed implements Namer.
func (TimestampNamer) ContentAddressed() bool { return false }

// TimestampName formats the date part of a timestamp file name.
func TimestampName(res createdat.Result) string {
	t := res.Time
	return fmt.Sprintf("%04d%02d%02d-%02d%02d%02d%s",
		t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
		res.Subseconds,
	)
}

// DigestNamer names media files after their content digest, keeping the
// original extension. Other files keep their base name.
type DigestNamer struct {
	Hasher digest.FileHasher
}

// Name implements Namer.
func (n DigestNamer) Name(src string, _ createdat.Result, media bool) (string, error) {
	if !media {
		return filepath.Base(src), nil
	}
	sum, err := n.Hasher.File(src)
	if err != nil {
		return "", fmt.Errorf("digest name: %w", err)
	}
	return sum + filepath.Ext(src), nil
}

// ContentAddressed implements Namer.
func (DigestNamer) ContentAddressed() bool { return true }
