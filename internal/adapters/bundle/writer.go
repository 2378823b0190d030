// Package bundle reads and writes the compressed region bundle files.
package bundle

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/geowork/roadpack/internal/core/ports"
)

// Writer streams bytes through gzip into a bundle file. Until Close
// succeeds the file is considered partial and Abort removes it.
type Writer struct {
	path string
	f    *os.File
	buf  *bufio.Writer
	gz   *gzip.Writer
	done bool
}

// Factory creates bundle writers on the local filesystem.
type Factory struct{}

// Create opens a new bundle file for writing.
func (Factory) Create(dir, name string) (ports.ArtifactWriter, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create bundle %s: %w", path, err)
	}
	buf := bufio.NewWriterSize(f, 256<<10)
	return &Writer{path: path, f: f, buf: buf, gz: gzip.NewWriter(buf)}, nil
}

// Write compresses p into the bundle.
func (w *Writer) Write(p []byte) (int, error) {
	return w.gz.Write(p)
}

// Close flushes compression and the underlying file.
func (w *Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.gz.Close(); err != nil {
		w.discard()
		return fmt.Errorf("finish bundle %s: %w", w.path, err)
	}
	if err := w.buf.Flush(); err != nil {
		w.discard()
		return fmt.Errorf("flush bundle %s: %w", w.path, err)
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.path)
		return fmt.Errorf("close bundle %s: %w", w.path, err)
	}
	return nil
}

// Abort discards the partially written file.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.discard()
}

func (w *Writer) discard() {
	_ = w.f.Close()
	_ = os.Remove(w.path)
}

// Path returns the file path being written.
func (w *Writer) Path() string { return w.path }
