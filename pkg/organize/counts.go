package organize

// Counts tallies outcomes for one run.
type Counts struct {
	Copied    int
	Moved     int
	Duplicate int
	Error     int
	Other     int

	// Errors lists the sources that ended in Error, in completion order.
	Errors []string
}

// Add records r.
func (c *Counts) Add(r Result) {
	switch r.Outcome {
	case Copied:
		c.Copied++
	case Moved:
		c.Moved++
	case Duplicate:
		c.Duplicate++
	case Error:
		c.Error++
		c.Errors = append(c.Errors, r.Source)
	case Other:
		c.Other++
	}
}

// Get returns the count for o.
func (c Counts) Get(o Outcome) int {
	switch o {
	case Copied:
		return c.Copied
	case Moved:
		return c.Moved
	case Duplicate:
		return c.Duplicate
	case Error:
		return c.Error
	case Other:
		return c.Other
	}
	return 0
}

// Total is the number of files processed.
func (c Counts) Total() int {
	return c.Copied + c.Moved + c.Duplicate + c.Error + c.Other
}
