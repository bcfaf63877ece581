package reconcile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bshomar/phockup/pkg/copy"
)

// DefaultSidecarExt is the companion metadata extension.
const DefaultSidecarExt = ".xmp"

// ErrSidecarExists is returned when the sidecar target name is already taken.
var ErrSidecarExists = errors.New("sidecar destination already exists")

// Sidecar is a relocated companion file.
type Sidecar struct {
	Source string
	Path   string
}

// FindSidecar looks for a companion of src, first as src+ext and then as
// stem(src)+ext. It returns the matching path and the name it should take
// next to a primary placed as finalName.
func FindSidecar(src, finalName, ext string) (path, name string, ok bool) {
	withExt := src + ext
	if isFile(withExt) {
		return withExt, finalName + ext, true
	}

	stem := strings.TrimSuffix(src, filepath.Ext(src)) + ext
	if stem != src && isFile(stem) {
		return stem, strings.TrimSuffix(finalName, filepath.Ext(finalName)) + ext, true
	}
	return "", "", false
}

// Associate relocates the sidecar of src next to its placed primary. finalName
// is the primary's name including any disambiguation suffix. A missing sidecar
// is not an error and yields ok == false.
func (p *Placer) Associate(src, dir, finalName, ext string) (Sidecar, bool, error) {
	if ext == "" {
		return Sidecar{}, false, nil
	}
	path, name, ok := FindSidecar(src, finalName, ext)
	if !ok {
		return Sidecar{}, false, nil
	}

	unlock := p.lock(dir, name)
	defer unlock()

	target := filepath.Join(dir, name)
	err := copy.Transfer(path, target, p.mode)
	if errors.Is(err, copy.ErrDestinationExists) {
		return Sidecar{Source: path, Path: target}, false, fmt.Errorf("%s: %w", target, ErrSidecarExists)
	}
	if err != nil {
		return Sidecar{Source: path}, false, fmt.Errorf("%s sidecar %s: %w", p.mode, path, err)
	}
	return Sidecar{Source: path, Path: target}, true, nil
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
