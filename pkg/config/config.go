// Package config holds the run configuration and its layering: defaults, then
// a YAML file, then command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bshomar/phockup/pkg/createdat"
	"github.com/bshomar/phockup/pkg/digest"
	"github.com/bshomar/phockup/pkg/metadata"
	"github.com/bshomar/phockup/pkg/plan"
	"github.com/bshomar/phockup/pkg/reconcile"
)

// DefaultFileName is the config file looked up in the home directory.
const DefaultFileName = ".phockuprc"

// ErrMissingExifTool is returned when an exiftool based extractor is selected
// and the binary cannot be found.
var ErrMissingExifTool = errors.New("exiftool is not installed, visit https://exiftool.org")

var lookPath = exec.LookPath

// Config holds the application configuration
type Config struct {
	InputDirectory       string `yaml:"input_directory"`
	OutputDirectory      string `yaml:"output_directory"`
	ConfigFile           string `yaml:"-"`
	DateFormat           string `yaml:"date_format"`
	Regex                string `yaml:"regex"`
	Move                 bool   `yaml:"move"`
	DigestRename         bool   `yaml:"digest_rename"`
	ModificationFallback bool   `yaml:"modification_fallback"`
	Hash                 string `yaml:"hash"`
	Extractor            string `yaml:"extractor"`
	ExifTool             string `yaml:"exiftool"`
	Workers              int    `yaml:"workers"`
	SidecarExtension     string `yaml:"sidecar_extension"`
	LogFile              string `yaml:"log_file"`
	Verbose              bool   `yaml:"verbose"`
	Progress             bool   `yaml:"progress"`
}

// Default returns the built in configuration.
func Default() Config {
	cfg := Config{
		DateFormat:       plan.DefaultLayout,
		Hash:             string(digest.SHA256),
		Extractor:        metadata.NameExifTool,
		ExifTool:         metadata.DefaultExifToolBinary,
		Workers:          1,
		SidecarExtension: reconcile.DefaultSidecarExt,
		Progress:         true,
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.ConfigFile = filepath.Join(home, DefaultFileName)
	}
	return cfg
}

// LoadFile overlays the YAML file at cfg.ConfigFile. A missing file is not an
// error.
func (c *Config) LoadFile() error {
	if c.ConfigFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", c.ConfigFile, err)
	}
	return nil
}

// SidecarExt returns SidecarExtension with a leading dot. Empty disables
// sidecar handling.
func (c Config) SidecarExt() string {
	ext := strings.TrimSpace(c.SidecarExtension)
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// Layout parses DateFormat.
func (c Config) Layout() (plan.Layout, error) {
	return plan.ParseLayout(c.DateFormat)
}

// Pattern compiles Regex. It returns nil when no regex is configured.
func (c Config) Pattern() (*regexp.Regexp, error) {
	if c.Regex == "" {
		return nil, nil
	}
	return createdat.CompilePattern(c.Regex)
}

// Algorithm parses Hash.
func (c Config) Algorithm() (digest.Algorithm, error) {
	return digest.ParseAlgorithm(c.Hash)
}

// Validate checks the configuration for organizing a tree.
func (c Config) Validate() error {
	if c.InputDirectory == "" {
		return fmt.Errorf("input directory is not specified")
	}
	if c.OutputDirectory == "" {
		return fmt.Errorf("output directory is not specified")
	}

	st, err := os.Stat(c.InputDirectory)
	if err != nil {
		return fmt.Errorf("input directory: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("input directory %s is not a directory", c.InputDirectory)
	}

	return c.ValidateOptions()
}

// ValidateOptions checks everything except the directories.
func (c Config) ValidateOptions() error {
	if _, err := c.Layout(); err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}
	if _, err := c.Pattern(); err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	if _, err := c.Algorithm(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	known := false
	for _, name := range metadata.Names {
		if c.Extractor == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("invalid extractor %q (must be one of %v)", c.Extractor, metadata.Names)
	}

	if ext := c.SidecarExt(); ext == "." || strings.ContainsAny(ext, `/\`) {
		return fmt.Errorf("invalid sidecar extension %q", c.SidecarExtension)
	}

	if metadata.NeedsExifTool(c.Extractor) {
		bin := c.ExifTool
		if bin == "" {
			bin = metadata.DefaultExifToolBinary
		}
		if _, err := lookPath(bin); err != nil {
			return ErrMissingExifTool
		}
	}
	return nil
}
