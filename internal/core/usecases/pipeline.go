package usecases

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/geowork/roadpack/internal/core/domain"
	"github.com/geowork/roadpack/internal/core/ports"
	"github.com/geowork/roadpack/internal/pkg/metrics"
)

// maxLineBytes bounds one NDJSON input line. Dense multipolygon coastlines
// have been seen above 1 MB; 16 MB leaves comfortable headroom.
const maxLineBytes = 16 << 20

// BuildResult summarizes one region build.
type BuildResult struct {
	Region  string
	Version string
	Counts  map[string]int
	Files   []string
	Dropped int
}

// BuildService runs the classification, accumulation and composition
// pipeline for one region. A region is all-or-nothing: on any failure the
// scratch sinks and partial bundles are removed before returning.
type BuildService struct {
	spills    ports.SpillFactory
	artifacts ports.ArtifactFactory
	mode      BundleMode
	log       *slog.Logger
}

// NewBuildService creates a build pipeline.
func NewBuildService(spills ports.SpillFactory, artifacts ports.ArtifactFactory, mode BundleMode, log *slog.Logger) *BuildService {
	return &BuildService{spills: spills, artifacts: artifacts, mode: mode, log: log}
}

// Build consumes the region's NDJSON feature stream from in and writes the
// bundle file(s) into outDir.
func (s *BuildService) Build(ctx context.Context, region string, in io.Reader, outDir string) (*BuildResult, error) {
	start := time.Now()
	version := domain.BundleVersion(start)

	surfaces, err := s.spills.Open(region, domain.CategoryRoadSurface)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", region, err)
	}
	defer surfaces.Close()

	ways, err := s.spills.Open(region, domain.CategoryRoadWay)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", region, err)
	}
	defer ways.Close()

	acc := NewAccumulator(surfaces, ways)

	dropped, err := s.consume(ctx, in, acc)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", region, err)
	}

	composer := NewComposer(s.artifacts, s.mode)
	files, err := composer.Compose(version, region, outDir, acc)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", region, err)
	}

	counts := acc.Counts()
	metrics.BuildDuration.WithLabelValues(region).Observe(time.Since(start).Seconds())
	s.log.Info("region built",
		"region", region,
		"version", version,
		"files", files,
		"counts", counts,
		"dropped_lines", dropped,
		"took", time.Since(start).String(),
	)

	return &BuildResult{
		Region:  region,
		Version: version,
		Counts:  counts,
		Files:   files,
		Dropped: dropped,
	}, nil
}

// consume classifies the feature stream line by line. Malformed lines are
// dropped silently per the input contract; only I/O and spill failures
// abort the region.
func (s *BuildService) consume(ctx context.Context, in io.Reader, acc *Accumulator) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64<<10), maxLineBytes)

	var lines, dropped int
	for scanner.Scan() {
		lines++
		if lines%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return dropped, err
			}
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		feature, err := domain.ParseFeature(line)
		if err != nil {
			dropped++
			metrics.LinesDropped.Inc()
			continue
		}

		for _, rec := range Classify(feature) {
			if err := acc.Add(rec); err != nil {
				return dropped, err
			}
			metrics.RecordsClassified.WithLabelValues(string(rec.Category())).Inc()
		}
	}
	if err := scanner.Err(); err != nil {
		return dropped, fmt.Errorf("read feature stream: %w", err)
	}
	return dropped, nil
}
