// Package spill provides file-backed scratch sinks for heavy-category
// records. A sink holds the comma-separated interior of a JSON array so
// the composer can stream it straight through compression.
package spill

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/geowork/roadpack/internal/core/domain"
	"github.com/geowork/roadpack/internal/core/ports"
	"github.com/geowork/roadpack/internal/pkg/metrics"
)

// FileSink is a single-writer, append-only scratch file scoped to one
// region run. It is deleted on Close regardless of outcome.
type FileSink struct {
	path     string
	category domain.Category
	f        *os.File
	buf      *bufio.Writer
	count    int
	closed   bool
}

// Factory creates sinks under a base directory, keyed by region and
// category so separate region processes never share a path.
type Factory struct {
	Dir string
}

// Open creates the scratch file for one region/category pair, truncating
// any stale leftover from a crashed run. Only heavy categories spill;
// the others stay in memory.
func (fc Factory) Open(region string, category domain.Category) (ports.SpillSink, error) {
	if !category.Heavy() {
		return nil, fmt.Errorf("open spill sink: category %q is held in memory", category)
	}
	dir := fc.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("roadpack-%s-%s.spill", region, category))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open spill sink %s: %w", path, err)
	}
	return &FileSink{path: path, category: category, f: f, buf: bufio.NewWriterSize(f, 256<<10)}, nil
}

// Append serializes one record and appends it. Entries after the first are
// prefixed with a comma, so the file is a valid array interior at all times.
func (s *FileSink) Append(v any) error {
	if s.closed {
		return fmt.Errorf("append to closed spill sink %s", s.path)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal spill record: %w", err)
	}
	if s.count > 0 {
		if err := s.buf.WriteByte(','); err != nil {
			return fmt.Errorf("write spill separator: %w", err)
		}
	}
	if _, err := s.buf.Write(data); err != nil {
		return fmt.Errorf("write spill record: %w", err)
	}
	s.count++
	metrics.SpillBytes.WithLabelValues(string(s.category)).Add(float64(len(data)))
	return nil
}

// Count returns the number of appended records.
func (s *FileSink) Count() int { return s.count }

// Stream flushes pending writes and copies the whole fragment interior to w.
func (s *FileSink) Stream(w io.Writer) error {
	if s.closed {
		return fmt.Errorf("stream from closed spill sink %s", s.path)
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("flush spill sink: %w", err)
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind spill sink: %w", err)
	}
	if _, err := io.Copy(w, s.f); err != nil {
		return fmt.Errorf("stream spill sink: %w", err)
	}
	return nil
}

// Close deletes the scratch file. It is called on every pipeline exit path
// and may run more than once.
func (s *FileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.f.Close()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove spill sink %s: %w", s.path, err)
	}
	return nil
}
