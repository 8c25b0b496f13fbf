// Package prefixer tags every line written through it with a fixed label.
package prefixer

import (
	"bytes"
	"io"
	"sync"
)

// Writer prepends a prefix to each line before forwarding it to dst.
// Bytes after the last newline are held until more input or Close arrives.
type Writer struct {
	mu     sync.Mutex
	dst    io.Writer
	prefix []byte
	rest   []byte
}

// New creates a Writer that forwards prefixed lines to dst
func New(dst io.Writer, prefix string) *Writer {
	return &Writer{
		dst:    dst,
		prefix: []byte(prefix),
	}
}

// Write buffers p and emits every completed line as a single write to dst
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.rest = append(w.rest, p...)
	for {
		idx := bytes.IndexByte(w.rest, '\n')
		if idx == -1 {
			break
		}
		line := w.rest[:idx+1]
		if err := w.emit(line); err != nil {
			return len(p), err
		}
		w.rest = w.rest[idx+1:]
	}

	// reclaim the consumed head of the buffer
	if len(w.rest) == 0 {
		w.rest = nil
	}
	return len(p), nil
}

// Close flushes any unterminated remainder with the prefix and no newline
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.rest) == 0 {
		return nil
	}
	err := w.emit(w.rest)
	w.rest = nil
	return err
}

func (w *Writer) emit(line []byte) error {
	out := make([]byte, 0, len(w.prefix)+len(line))
	out = append(out, w.prefix...)
	out = append(out, line...)
	_, err := w.dst.Write(out)
	return err
}

// Copy streams r through a prefixing writer into dst and flushes the remainder
func Copy(dst io.Writer, r io.Reader, prefix string) error {
	w := New(dst, prefix)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
