package reconcile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/bshomar/phockup/pkg/copy"
	"github.com/bshomar/phockup/pkg/digest"
)

const stripes = 256

// Placement describes where a source ended up.
type Placement struct {
	// Path is the final destination, or the existing file the source
	// duplicates.
	Path string
	// Index is the winning disambiguation index. 1 means no suffix.
	Index     int
	Duplicate bool
}

// Placer puts files into destination directories without ever overwriting
// distinct content. It is safe for concurrent use.
type Placer struct {
	hasher digest.FileHasher
	mode   copy.Mode

	locks [stripes]sync.Mutex
}

// NewPlacer returns a Placer that fingerprints with h and copies or moves
// according to mode.
func NewPlacer(h digest.FileHasher, mode copy.Mode) *Placer {
	return &Placer{hasher: h, mode: mode}
}

// Mode reports whether the placer copies or moves.
func (p *Placer) Mode() copy.Mode {
	return p.mode
}

// CandidateName inserts -index before the extension of name when index > 1.
func CandidateName(name string, index int) string {
	if index <= 1 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), index, ext)
}

func (p *Placer) lock(dir, name string) func() {
	m := &p.locks[xxhash.Sum64String(dir+"\x00"+name)%stripes]
	m.Lock()
	return m.Unlock
}

// Place puts src into dir under name. When a file already holds that name,
// it is compared with src: equal content yields a duplicate and nothing is
// written, different content moves on to name-2, name-3 and so on.
func (p *Placer) Place(src, dir, name string) (Placement, error) {
	unlock := p.lock(dir, name)
	defer unlock()

	var srcSum string
	for index := 1; ; {
		candidate := filepath.Join(dir, CandidateName(name, index))

		if _, err := os.Lstat(candidate); err != nil {
			if !os.IsNotExist(err) {
				return Placement{}, fmt.Errorf("stat %s: %w", candidate, err)
			}

			err := copy.Transfer(src, candidate, p.mode)
			if errors.Is(err, copy.ErrDestinationExists) {
				// Claimed by a writer outside this lock; compare against it.
				continue
			}
			if err != nil {
				return Placement{}, fmt.Errorf("%s %s: %w", p.mode, src, err)
			}
			return Placement{Path: candidate, Index: index}, nil
		}

		same, err := p.sameContent(src, candidate, &srcSum)
		if err != nil {
			return Placement{}, err
		}
		if same {
			return Placement{Path: candidate, Index: index, Duplicate: true}, nil
		}
		index++
	}
}

// PlaceDigest puts src at dir/name, where name already embeds the content
// digest. An existing file there is a duplicate by construction.
func (p *Placer) PlaceDigest(src, dir, name string) (Placement, error) {
	unlock := p.lock(dir, name)
	defer unlock()

	target := filepath.Join(dir, name)
	if _, err := os.Lstat(target); err == nil {
		return Placement{Path: target, Index: 1, Duplicate: true}, nil
	} else if !os.IsNotExist(err) {
		return Placement{}, fmt.Errorf("stat %s: %w", target, err)
	}

	err := copy.Transfer(src, target, p.mode)
	if errors.Is(err, copy.ErrDestinationExists) {
		return Placement{Path: target, Index: 1, Duplicate: true}, nil
	}
	if err != nil {
		return Placement{}, fmt.Errorf("%s %s: %w", p.mode, src, err)
	}
	return Placement{Path: target, Index: 1}, nil
}

// sameContent compares src with an existing candidate. The source digest is
// computed on first need and cached in srcSum.
func (p *Placer) sameContent(src, candidate string, srcSum *string) (bool, error) {
	if filepath.Clean(src) == filepath.Clean(candidate) {
		return true, nil
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", src, err)
	}
	candInfo, err := os.Stat(candidate)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", candidate, err)
	}
	if srcInfo.Size() != candInfo.Size() {
		return false, nil
	}

	if *srcSum == "" {
		sum, err := p.hasher.File(src)
		if err != nil {
			return false, err
		}
		*srcSum = sum
	}
	candSum, err := p.hasher.File(candidate)
	if err != nil {
		return false, err
	}
	return *srcSum == candSum, nil
}
