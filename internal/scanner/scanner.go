// Package scanner defines the barcode source capability. Any decoding
// mechanism that yields a code string can implement it; the rest of the
// service never depends on a specific decoder.
package scanner

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Source asynchronously yields decoded barcode strings.
type Source interface {
	// Run blocks, invoking onDetected for every decoded code, until the
	// context is cancelled or the source is exhausted.
	Run(ctx context.Context, onDetected func(code string)) error
}

// LineSource reads newline-terminated codes from a reader. USB
// keyboard-wedge scanners present exactly this shape: the code followed
// by a carriage return.
type LineSource struct {
	r io.Reader
}

// NewLineSource creates a source over r.
func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{r: r}
}

// Run reads codes until EOF or cancellation. Blank lines are skipped.
func (s *LineSource) Run(ctx context.Context, onDetected func(code string)) error {
	sc := bufio.NewScanner(s.r)
	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		code := strings.TrimSpace(sc.Text())
		if code == "" {
			continue
		}
		onDetected(code)
	}
	return sc.Err()
}
