package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when a read is abandoned because its context ended.
var ErrInputCancelled = errors.New("input canceled")

// NonBlockingReader reads answers from the terminal without ignoring Ctrl-C.
// Reads are serialized; an abandoned read keeps its goroutine parked until
// the next input arrives, and that input is then lost.
type NonBlockingReader struct {
	buf *bufio.Reader
	mu  sync.Mutex
}

// NewNonBlockingReader wraps r. It panics on a nil reader.
func NewNonBlockingReader(r io.Reader) *NonBlockingReader {
	if r == nil {
		panic("reader cannot be nil")
	}
	return &NonBlockingReader{buf: bufio.NewReader(r)}
}

type readResult struct {
	err  error
	text string
}

// ReadString reads up to and including delim unless ctx ends first.
func (r *NonBlockingReader) ReadString(ctx context.Context, delim byte) (string, error) {
	if ctx.Err() != nil {
		return "", ErrInputCancelled
	}

	done := make(chan readResult, 1)
	go func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		text, err := r.buf.ReadString(delim)
		done <- readResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-done:
		return res.text, res.err
	}
}

// ReadLine returns the next line with surrounding whitespace removed. A last
// line missing its newline still counts; io.EOF is returned only when no
// input is left.
func (r *NonBlockingReader) ReadLine(ctx context.Context) (string, error) {
	line, err := r.ReadString(ctx, '\n')
	switch {
	case err == nil, errors.Is(err, io.EOF) && line != "":
		return strings.TrimSpace(line), nil
	default:
		return "", err
	}
}
