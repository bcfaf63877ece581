package metadata

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abema/go-mp4"
	"github.com/rwcarlsen/goexif/exif"
)

// appleEpochOffset is the number of seconds between 1904-01-01 (QuickTime
// epoch) and 1970-01-01.
const appleEpochOffset = 2082844800

const exifLayout = "2006:01:02 15:04:05"

// Native reads metadata in-process without exiftool. It covers fewer formats
// but needs no external binary.
type Native struct{}

// Extract implements Extractor.
func (Native) Extract(ctx context.Context, path string) (Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mimeType, container, ok := LookupMedia(path)
	if !ok {
		return nil, fmt.Errorf("%q: %w: unsupported format", path, ErrNoMetadata)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%q: %w: %v", path, ErrNoMetadata, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%q: %w: %v", path, ErrNoMetadata, err)
	}

	m := Map{
		KeyMIMEType:       mimeType,
		KeyFileModifyDate: info.ModTime().Format(exifLayout + "-07:00"),
	}

	switch container {
	case ContainerEXIF:
		exifDates(f, m)
	case ContainerISO:
		if t, ok := mvhdCreationTime(f); ok {
			m[KeyCreateDate] = t.Format(exifLayout)
		}
	}

	return m, nil
}

// exifDates copies the EXIF capture timestamps into m. Decode failures leave m
// untouched; a photo without EXIF is normal.
func exifDates(r io.Reader, m Map) {
	x, err := exif.Decode(r)
	if err != nil {
		return
	}

	if s, ok := exifString(x, exif.DateTimeOriginal); ok {
		m[KeyDateTimeOriginal] = s
	}
	if s, ok := exifString(x, exif.DateTimeDigitized); ok {
		m[KeyCreateDate] = s
	}
}

func exifString(x *exif.Exif, tag exif.FieldName) (string, bool) {
	f, err := x.Get(tag)
	if err != nil {
		return "", false
	}

	s, err := f.StringVal()
	if err != nil {
		return "", false
	}

	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	return s, s != ""
}

// mvhdCreationTime returns the movie header creation time of an ISO base media
// file. Zero timestamps (unset by the camera) report false.
func mvhdCreationTime(r io.ReadSeeker) (time.Time, bool) {
	var secs uint64
	_, err := mp4.ReadBoxStructure(r, func(h *mp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case mp4.BoxTypeMoov():
			return h.Expand()
		case mp4.BoxTypeMvhd():
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if mvhd, ok := box.(*mp4.Mvhd); ok {
				if mvhd.GetVersion() == 0 {
					secs = uint64(mvhd.CreationTimeV0)
				} else {
					secs = mvhd.CreationTimeV1
				}
			}
		}
		return nil, nil
	})
	if err != nil || secs < appleEpochOffset {
		return time.Time{}, false
	}
	return time.Unix(int64(secs)-appleEpochOffset, 0).UTC(), true
}
