// Package report renders run progress and the final outcome summary.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/bshomar/phockup/pkg/organize"
)

// Progress is a running indicator of processed files.
type Progress struct {
	bar    *progressbar.ProgressBar
	counts organize.Counts
}

// NewProgress writes a progress bar for total files to w.
func NewProgress(w io.Writer, total int) *Progress {
	bar := progressbar.NewOptions64(int64(total),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(describe(organize.Counts{})),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	return &Progress{bar: bar}
}

// Observe advances the bar by one file.
func (p *Progress) Observe(r organize.Result) {
	p.counts.Add(r)
	p.bar.Describe(describe(p.counts))
	_ = p.bar.Add(1)
}

// Finish completes the bar.
func (p *Progress) Finish() error {
	return p.bar.Finish()
}

func describe(c organize.Counts) string {
	parts := make([]string, 0, len(organize.Outcomes))
	for _, o := range organize.Outcomes {
		parts = append(parts, fmt.Sprintf("%s:%d", o, c.Get(o)))
	}
	return strings.Join(parts, " ")
}

// Row is one line of the summary.
type Row struct {
	Label   string
	Count   int
	Percent float64
}

// Rows returns the total followed by one row per outcome.
func Rows(c organize.Counts) []Row {
	total := c.Total()
	rows := []Row{{Label: "total", Count: total, Percent: percent(total, total)}}
	for _, o := range organize.Outcomes {
		n := c.Get(o)
		rows = append(rows, Row{Label: string(o), Count: n, Percent: percent(n, total)})
	}
	return rows
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

func labelColor(label string) *color.Color {
	switch organize.Outcome(label) {
	case organize.Copied, organize.Moved:
		return color.New(color.FgGreen)
	case organize.Duplicate:
		return color.New(color.FgYellow)
	case organize.Error:
		return color.New(color.FgRed)
	case organize.Other:
		return color.New(color.FgCyan)
	}
	return color.New(color.Bold)
}

// Summary writes the outcome table to w.
func Summary(w io.Writer, c organize.Counts) {
	for _, r := range Rows(c) {
		label := labelColor(r.Label).Sprint(r.Label + ":")
		fmt.Fprintf(w, "%s\t%d\t%.0f%%\n", label, r.Count, r.Percent)
	}
}
