// Package logging builds the run logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	// File receives every decision as JSON at debug level.
	File string
	// Verbose adds human readable output on Console.
	Verbose bool
	Console io.Writer
}

// New returns the logger described by opts and a function closing the log
// file. Without a file and without verbose output the logger discards
// everything.
func New(opts Options) (zerolog.Logger, func() error, error) {
	noop := func() error { return nil }

	var writers []io.Writer
	closeFn := noop

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closeFn = f.Close
	}

	if opts.Verbose {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly})
	}

	if len(writers) == 0 {
		return zerolog.Nop(), closeFn, nil
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
	return logger, closeFn, nil
}
