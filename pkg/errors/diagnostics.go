package errors

import (
	"errors"
	"strings"
)

// Diagnostics collects recoverable problems found while processing one message.
// A non-empty Diagnostics never means the engine stopped; each entry names the
// element that was skipped or rejected.
type Diagnostics []*Error

// Add appends a new diagnostic with the given code and formatted message.
func (d *Diagnostics) Add(code Code, format string, args ...any) {
	*d = append(*d, New(code, format, args...))
}

// Append appends existing diagnostics.
func (d *Diagnostics) Append(other ...*Error) {
	*d = append(*d, other...)
}

// Len returns the number of diagnostics.
func (d Diagnostics) Len() int { return len(d) }

// Count returns how many diagnostics carry the given code.
func (d Diagnostics) Count(code Code) int {
	n := 0
	for _, e := range d {
		if e.Code == code {
			n++
		}
	}
	return n
}

// Has reports whether any diagnostic carries the given code.
func (d Diagnostics) Has(code Code) bool { return d.Count(code) > 0 }

// Err joins all diagnostics into a single error, or returns nil when empty.
func (d Diagnostics) Err() error {
	if len(d) == 0 {
		return nil
	}
	errs := make([]error, len(d))
	for i, e := range d {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Messages returns the user-facing message of every diagnostic.
func (d Diagnostics) Messages() []string {
	out := make([]string, len(d))
	for i, e := range d {
		out[i] = e.Message
	}
	return out
}

// String renders one diagnostic per line.
func (d Diagnostics) String() string {
	lines := make([]string, len(d))
	for i, e := range d {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n")
}
