// Package digest computes content fingerprints used for duplicate detection
// and digest-based file names.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"lukechampine.com/blake3"
)

// BlockSize is the read size used when streaming a file through the hash.
const BlockSize = 64 * 1024

// Algorithm names a collision resistant hash function.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm validates an algorithm name. Empty selects SHA256.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "", SHA256:
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	}
	return "", fmt.Errorf("unknown hash algorithm %q (must be sha256 or blake3)", name)
}

func (a Algorithm) newHash() hash.Hash {
	if a == BLAKE3 {
		return blake3.New(32, nil)
	}
	return sha256.New()
}

// FileHasher fingerprints the file at a path.
type FileHasher interface {
	File(path string) (string, error)
}

// Hasher fingerprints files with one algorithm.
type Hasher struct {
	Algorithm Algorithm
}

// New returns a Hasher for alg.
func New(alg Algorithm) Hasher {
	return Hasher{Algorithm: alg}
}

// File returns the lowercase hex digest of the file at path.
func (h Hasher) File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sum, err := h.Reader(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return sum, nil
}

// Reader returns the lowercase hex digest of everything read from r.
func (h Hasher) Reader(r io.Reader) (string, error) {
	hh := h.Algorithm.newHash()
	buf := make([]byte, BlockSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			hh.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(hh.Sum(nil)), nil
}
