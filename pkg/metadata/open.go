package metadata

import "fmt"

// Extractor names accepted by Open.
const (
	NameExifTool = "exiftool"
	NameStayOpen = "stay-open"
	NameNative   = "native"
)

// Names lists the known extractors.
var Names = []string{NameExifTool, NameStayOpen, NameNative}

// NeedsExifTool reports whether the named extractor runs the exiftool binary.
func NeedsExifTool(name string) bool {
	return name == NameExifTool || name == NameStayOpen
}

// Open returns the named extractor. The returned close function releases any
// process it started and is never nil.
func Open(name, binary string) (Extractor, func() error, error) {
	noop := func() error { return nil }

	switch name {
	case "", NameExifTool:
		return ExifTool{Binary: binary}, noop, nil
	case NameStayOpen:
		s, err := NewStayOpen(binary)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case NameNative:
		return Native{}, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown extractor %q (must be one of %v)", name, Names)
}
