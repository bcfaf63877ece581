package plan

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrEmptyLayout is returned by ParseLayout for an empty template.
var ErrEmptyLayout = errors.New("date format cannot be empty")

type token int

const (
	tokLiteral token = iota
	tokYear4
	tokYear2
	tokMonth2
	tokMonthName
	tokMonthAbbr
	tokDay2
	tokYearDay
)

// Tokens are matched longest first at each position.
var layoutTokens = []struct {
	text string
	tok  token
}{
	{"YYYY", tokYear4},
	{"DDD", tokYearDay},
	{"YY", tokYear2},
	{"MM", tokMonth2},
	{"DD", tokDay2},
	{"M", tokMonthName},
	{"m", tokMonthAbbr},
}

type layoutPart struct {
	tok     token
	literal string
}

// Layout is a parsed directory date template such as "YYYY/MM/DD".
//
//	YYYY  2017        YY   17
//	MM    07          M    July
//	m     Jul         DD   27
//	DDD   208 (day of year)
//
// Both '/' and '\' are path separators; any other character is kept as is.
type Layout struct {
	template string
	parts    []layoutPart
}

// DefaultLayout is year/month/day.
const DefaultLayout = "YYYY/MM/DD"

// ParseLayout parses a directory date template.
func ParseLayout(template string) (Layout, error) {
	if template == "" {
		return Layout{}, ErrEmptyLayout
	}

	l := Layout{template: template}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			l.parts = append(l.parts, layoutPart{tok: tokLiteral, literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(template); {
		matched := false
		for _, t := range layoutTokens {
			if strings.HasPrefix(template[i:], t.text) {
				flush()
				l.parts = append(l.parts, layoutPart{tok: t.tok})
				i += len(t.text)
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		c := template[i]
		if c == '/' || c == '\\' {
			lit.WriteRune(os.PathSeparator)
		} else {
			lit.WriteByte(c)
		}
		i++
	}
	flush()

	rendered := l.Render(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	if strings.Trim(rendered, string(os.PathSeparator)) == "" {
		return Layout{}, fmt.Errorf("date format %q renders no directory", template)
	}
	for _, elem := range strings.Split(rendered, string(os.PathSeparator)) {
		if elem == ".." {
			return Layout{}, fmt.Errorf("date format %q escapes the output directory", template)
		}
	}
	return l, nil
}

// MustParseLayout is like ParseLayout but panics on error.
func MustParseLayout(template string) Layout {
	l, err := ParseLayout(template)
	if err != nil {
		panic(err)
	}
	return l
}

// String returns the template the layout was parsed from.
func (l Layout) String() string {
	return l.template
}

// Render formats t through the layout. Only date components are used.
func (l Layout) Render(t time.Time) string {
	var b strings.Builder
	for _, p := range l.parts {
		switch p.tok {
		case tokLiteral:
			b.WriteString(p.literal)
		case tokYear4:
			fmt.Fprintf(&b, "%04d", t.Year())
		case tokYear2:
			fmt.Fprintf(&b, "%02d", t.Year()%100)
		case tokMonth2:
			fmt.Fprintf(&b, "%02d", int(t.Month()))
		case tokMonthName:
			b.WriteString(t.Month().String())
		case tokMonthAbbr:
			b.WriteString(t.Month().String()[:3])
		case tokDay2:
			fmt.Fprintf(&b, "%02d", t.Day())
		case tokYearDay:
			fmt.Fprintf(&b, "%03d", t.YearDay())
		}
	}
	return b.String()
}
