// Package input supplies numbered source lines to the runner in batches.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sentinel ends interactive input before end of stream.
const Sentinel = ";;"

// Line is one numbered source line. No is 1-based; a zero No means there was
// no buffered line.
type Line struct {
	No   int
	Text string
}

// Source hands out lines in batches. Fetch reads up to limit more lines into
// an internal buffer and returns how many were added; zero means the input
// is exhausted. Next pops the oldest buffered line, or returns a Line with
// No == 0 when the buffer is empty.
type Source interface {
	Fetch(limit int) (int, error)
	Next() Line
}

// Reader is a Source over an io.Reader: a file or standard input.
type Reader struct {
	scanner     *bufio.Scanner
	closer      io.Closer
	interactive bool

	lastLineStored int
	lines          []Line
	done           bool
}

// NewReader reads lines from r. When interactive is set, a line equal to
// Sentinel ends the input.
func NewReader(r io.Reader, interactive bool) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{scanner: scanner, interactive: interactive}
}

// Open returns a Reader over the named file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r := NewReader(f, false)
	r.closer = f
	return r, nil
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

func (r *Reader) Fetch(limit int) (int, error) {
	if limit <= 0 {
		limit = 1
	}

	n := 0
	for n < limit && !r.done {
		if !r.scanner.Scan() {
			r.done = true
			if err := r.scanner.Err(); err != nil {
				return n, fmt.Errorf("read line %d: %w", r.lastLineStored+1, err)
			}
			break
		}

		text := strings.TrimSuffix(r.scanner.Text(), "\r")
		r.lastLineStored++
		if r.interactive && text == Sentinel {
			r.done = true
			break
		}
		r.lines = append(r.lines, Line{No: r.lastLineStored, Text: text})
		n++
	}
	return n, nil
}

func (r *Reader) Next() Line {
	if len(r.lines) == 0 {
		return Line{}
	}
	ln := r.lines[0]
	r.lines = r.lines[1:]
	return ln
}
