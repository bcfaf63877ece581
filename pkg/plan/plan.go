package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bshomar/phockup/pkg/createdat"
)

// UnknownDir is the bucket for files without a resolved date.
const UnknownDir = "unknown"

// Operation represents a planned transfer from source to destination.
type Operation struct {
	SourcePath      string
	DestinationPath string
}

// DirError reports that a destination directory could not be created. It is
// not a per-file problem: the output tree is unusable.
type DirError struct {
	Dir string
	Err error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("cannot create directory %s: %v", e.Dir, e.Err)
}

func (e *DirError) Unwrap() error {
	return e.Err
}

// Planner computes destination directories below an output root. It remembers
// directories it has already created and is safe for concurrent use.
type Planner struct {
	root   string
	layout Layout

	mu      sync.Mutex
	created map[string]bool
}

// NewPlanner returns a planner for root using layout.
func NewPlanner(root string, layout Layout) *Planner {
	return &Planner{
		root:    filepath.Clean(root),
		layout:  layout,
		created: make(map[string]bool),
	}
}

// Root returns the output root.
func (p *Planner) Root() string {
	return p.root
}

// Path computes the destination directory for res without touching the
// filesystem:
//
//	<root>/<layout rendered with res.Time>   when the date is resolved
//	<root>/unknown                           otherwise
func (p *Planner) Path(res createdat.Result) string {
	if !res.Found {
		return filepath.Join(p.root, UnknownDir)
	}
	return filepath.Join(p.root, p.layout.Render(res.Time))
}

// Dir is like Path but also creates the directory (and parents) if needed.
// Failures are returned as *DirError.
func (p *Planner) Dir(res createdat.Result) (string, error) {
	dir := p.Path(res)
	if err := p.ensure(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// Unknown returns the unknown bucket, creating it if needed.
func (p *Planner) Unknown() (string, error) {
	return p.Dir(createdat.Unresolved)
}

func (p *Planner) ensure(dir string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.created[dir] {
		return nil
	}
	// MkdirAll treats an existing directory as success, so a concurrent
	// creator elsewhere is harmless.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &DirError{Dir: dir, Err: err}
	}
	p.created[dir] = true
	return nil
}
