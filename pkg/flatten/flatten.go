// Package flatten moves every file of a tree into a single directory.
package flatten

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bshomar/phockup/pkg/copy"
	"github.com/bshomar/phockup/pkg/plan"
	"github.com/bshomar/phockup/pkg/reconcile"
	"github.com/bshomar/phockup/pkg/scan"
)

// Plan lists the operations that flatten input into output. Clashing names get
// -2, -3, ... before the extension, checked against output and against
// earlier operations.
func Plan(input, output string) ([]plan.Operation, error) {
	input = filepath.Clean(input)
	output = filepath.Clean(output)

	var walkErr error
	opts := scan.Options{MaxDepth: -1, OnError: func(_ string, err error) {
		if walkErr == nil {
			walkErr = err
		}
	}}
	files, err := scan.Scan(os.DirFS(input), ".", opts)
	if err == nil {
		err = walkErr
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", input, err)
	}

	reserved := make(map[string]bool)
	ops := make([]plan.Operation, 0, len(files))
	for _, rel := range files {
		src := filepath.Join(input, filepath.FromSlash(rel))
		if filepath.Dir(src) == output {
			continue
		}

		name := filepath.Base(src)
		var dst string
		for index := 1; ; index++ {
			dst = filepath.Join(output, reconcile.CandidateName(name, index))
			if reserved[dst] {
				continue
			}
			_, err := os.Lstat(dst)
			if os.IsNotExist(err) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", dst, err)
			}
		}

		reserved[dst] = true
		ops = append(ops, plan.Operation{SourcePath: src, DestinationPath: dst})
	}
	return ops, nil
}

// Run flattens input into output using mode and returns one result per file.
func Run(input, output string, mode copy.Mode) ([]copy.Result, error) {
	ops, err := Plan(input, output)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(output, 0o755); err != nil {
		return nil, &plan.DirError{Dir: output, Err: err}
	}
	return copy.Execute(ops, copy.Options{Mode: mode}), nil
}
