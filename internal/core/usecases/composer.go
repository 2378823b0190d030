package usecases

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/geowork/roadpack/internal/core/domain"
	"github.com/geowork/roadpack/internal/core/ports"
)

// BundleMode selects how a region's categories are split across files.
type BundleMode string

const (
	// ModeSingle writes one bundle holding all four category arrays.
	ModeSingle BundleMode = "single"
	// ModeSplit writes an eagerly-loaded core bundle plus one
	// independently downloadable bundle per heavy category.
	ModeSplit BundleMode = "split"
)

// Composer serializes one region's accumulated records into versioned,
// compressed bundle files. Heavy categories are forwarded from their
// scratch sinks straight through compression; the uncompressed document
// never exists in memory.
type Composer struct {
	artifacts ports.ArtifactFactory
	mode      BundleMode
}

// NewComposer creates a composer writing through the given factory.
func NewComposer(artifacts ports.ArtifactFactory, mode BundleMode) *Composer {
	return &Composer{artifacts: artifacts, mode: mode}
}

// Compose writes the bundle file(s) for one region and returns their
// names. A region is all-or-nothing: on failure the in-flight file is
// discarded and every bundle completed earlier in the same run is
// removed. A core bundle left behind by a failed split run would later
// load cleanly as a degraded region with its heavy data silently absent.
func (c *Composer) Compose(version, region, outDir string, acc *Accumulator) ([]string, error) {
	if c.mode == ModeSingle {
		name := domain.CoreBundleName(region)
		err := c.writeBundle(outDir, name, version, region, func(d *docWriter) {
			d.valueField(string(domain.CategoryTrafficCalming), acc.TrafficCalming())
			d.valueField(string(domain.CategoryRoundabout), acc.Roundabouts())
			d.spillField(string(domain.CategoryRoadSurface), acc.Surfaces())
			d.spillField(string(domain.CategoryRoadWay), acc.Ways())
		})
		if err != nil {
			return nil, err
		}
		return []string{name}, nil
	}

	bundles := []struct {
		name string
		body func(*docWriter)
	}{
		{domain.CoreBundleName(region), func(d *docWriter) {
			d.valueField(string(domain.CategoryTrafficCalming), acc.TrafficCalming())
			d.valueField(string(domain.CategoryRoundabout), acc.Roundabouts())
		}},
		{domain.HeavyBundleName(region, domain.BundleSurfaces), func(d *docWriter) {
			d.spillField(string(domain.CategoryRoadSurface), acc.Surfaces())
		}},
		{domain.HeavyBundleName(region, domain.BundleWays), func(d *docWriter) {
			d.spillField(string(domain.CategoryRoadWay), acc.Ways())
		}},
	}

	var written []string
	for _, b := range bundles {
		if err := c.writeBundle(outDir, b.name, version, region, b.body); err != nil {
			for _, name := range written {
				_ = os.Remove(filepath.Join(outDir, name))
			}
			return nil, err
		}
		written = append(written, b.name)
	}
	return written, nil
}

func (c *Composer) writeBundle(dir, name, version, region string, body func(*docWriter)) error {
	w, err := c.artifacts.Create(dir, name)
	if err != nil {
		return fmt.Errorf("compose %s: %w", name, err)
	}

	d := newDocWriter(w, version, region)
	body(d)
	if err := d.finish(); err != nil {
		w.Abort()
		return fmt.Errorf("compose %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("compose %s: %w", name, err)
	}
	return nil
}

// docWriter is an incremental serializer for one bundle document. It emits
// structural tokens and forwards inner streams; errors are latched so call
// sites stay linear.
type docWriter struct {
	w   io.Writer
	err error
}

func newDocWriter(w io.Writer, version, region string) *docWriter {
	d := &docWriter{w: w}
	d.raw(`{"version":`)
	d.value(version)
	d.raw(`,"region":`)
	d.value(region)
	return d
}

// valueField emits a named field with a fully marshaled value. Used for
// the low-cardinality in-memory arrays.
func (d *docWriter) valueField(name string, v any) {
	d.raw(`,`)
	d.value(name)
	d.raw(`:`)
	d.value(v)
}

// spillField emits a named array whose interior is forwarded verbatim from
// a scratch sink.
func (d *docWriter) spillField(name string, sink ports.SpillSink) {
	d.raw(`,`)
	d.value(name)
	d.raw(`:[`)
	if d.err == nil {
		d.err = sink.Stream(d.w)
	}
	d.raw(`]`)
}

func (d *docWriter) finish() error {
	d.raw("}\n")
	return d.err
}

func (d *docWriter) raw(s string) {
	if d.err != nil {
		return
	}
	_, d.err = io.WriteString(d.w, s)
}

func (d *docWriter) value(v any) {
	if d.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		d.err = err
		return
	}
	_, d.err = d.w.Write(data)
}
