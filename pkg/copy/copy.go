package copy

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/djherbis/times"
	"github.com/google/uuid"

	"github.com/bshomar/phockup/pkg/plan"
)

var (
	// ErrDestinationExists is returned when attempting to write to an existing file
	ErrDestinationExists = errors.New("destination file already exists")
)

// Mode selects between copying and moving.
type Mode int

const (
	ModeCopy Mode = iota
	ModeMove
)

func (m Mode) String() string {
	if m == ModeMove {
		return "move"
	}
	return "copy"
}

// Result contains the outcome of a transfer.
type Result struct {
	Operation plan.Operation
	Success   bool
	Error     error
}

// Options configures the transfer behavior.
type Options struct {
	Mode Mode
}

// Execute performs the transfers for the given plans.
//
// It will:
// - Create destination directories if they don't exist
// - Never overwrite existing files
// - Preserve file mode and access and modification times
func Execute(operations []plan.Operation, opts Options) []Result {
	results := make([]Result, 0, len(operations))

	for _, op := range operations {
		result := Result{Operation: op}

		destDir := filepath.Dir(op.DestinationPath)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			result.Error = fmt.Errorf("create directory: %w", err)
			results = append(results, result)
			continue
		}

		if err := Transfer(op.SourcePath, op.DestinationPath, opts.Mode); err != nil {
			result.Error = err
			results = append(results, result)
			continue
		}

		result.Success = true
		results = append(results, result)
	}

	return results
}

// Transfer copies or moves src to dst. dst must not exist, and an existing
// dst is never replaced, even by a concurrent writer. A partially written
// file is never left at dst: data goes to a temporary file in the destination
// directory which is linked into place once complete.
func Transfer(src, dst string, mode Mode) error {
	if exists(dst) {
		return ErrDestinationExists
	}
	if mode == ModeMove {
		return moveFile(src, dst)
	}
	return copyFile(src, dst)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// place makes the file at from visible at dst without replacing anything that
// is already there.
func place(from, dst string) error {
	err := os.Link(from, dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrExist):
		return ErrDestinationExists
	case linkUnsupported(err):
		return renameIfAbsent(from, dst)
	}
	return fmt.Errorf("link into place: %w", err)
}

// renameIfAbsent is used where the filesystem has no hard links. The check
// and the rename are not atomic there.
func renameIfAbsent(from, dst string) error {
	if exists(dst) {
		return ErrDestinationExists
	}
	if err := os.Rename(from, dst); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func linkUnsupported(err error) bool {
	return errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.ENOTSUP) ||
		errors.Is(err, syscall.EOPNOTSUPP) ||
		errors.Is(err, syscall.EMLINK)
}

func moveFile(src, dst string) error {
	err := os.Link(src, dst)
	switch {
	case err == nil:
		if err := os.Remove(src); err != nil {
			return fmt.Errorf("remove source: %w", err)
		}
		return nil
	case errors.Is(err, fs.ErrExist):
		return ErrDestinationExists
	case linkUnsupported(err):
		err = renameIfAbsent(src, dst)
		if err == nil || !errors.Is(err, syscall.EXDEV) {
			return err
		}
	case !errors.Is(err, syscall.EXDEV):
		return fmt.Errorf("link: %w", err)
	}

	// Different filesystems: copy, then drop the source.
	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source: %w", err)
	}
	return nil
}

// copyFile copies src to dst keeping mode and access and modification times.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(dst), "."+uuid.NewString()+".phockup.tmp")
	tmpFile, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, srcInfo.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	// After a successful link this drops the extra name.
	defer os.Remove(tmp)

	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		tmpFile.Close()
		return fmt.Errorf("copy content: %w", err)
	}

	// Ensure data is written to disk
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Chmod(tmp, srcInfo.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Chtimes(tmp, times.Get(srcInfo).AccessTime(), srcInfo.ModTime()); err != nil {
		return fmt.Errorf("chtimes: %w", err)
	}

	return place(tmp, dst)
}
