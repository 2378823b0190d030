package usecases

import (
	"fmt"

	"github.com/geowork/roadpack/internal/core/domain"
	"github.com/geowork/roadpack/internal/core/ports"
)

// Accumulator consumes the classifier's output stream for one region. Core
// categories stay in ordered in-memory slices; heavy categories go through
// append-only scratch sinks so a region with tens of millions of road
// segments never materializes them all at once.
type Accumulator struct {
	calming     []domain.TrafficCalmingRecord
	roundabouts []domain.RoundaboutRecord
	surfaces    ports.SpillSink
	ways        ports.SpillSink
}

// NewAccumulator wires an accumulator to the two heavy-category sinks.
func NewAccumulator(surfaces, ways ports.SpillSink) *Accumulator {
	return &Accumulator{
		calming:     []domain.TrafficCalmingRecord{},
		roundabouts: []domain.RoundaboutRecord{},
		surfaces:    surfaces,
		ways:        ways,
	}
}

// Add routes one classified record to its destination, preserving input
// encounter order within each category.
func (a *Accumulator) Add(rec domain.Record) error {
	switch r := rec.(type) {
	case domain.TrafficCalmingRecord:
		a.calming = append(a.calming, r)
	case domain.RoundaboutRecord:
		a.roundabouts = append(a.roundabouts, r)
	case domain.RoadSurfaceRecord:
		if err := a.surfaces.Append(r); err != nil {
			return fmt.Errorf("spill surface record: %w", err)
		}
	case domain.RoadWayRecord:
		if err := a.ways.Append(r); err != nil {
			return fmt.Errorf("spill way record: %w", err)
		}
	default:
		return fmt.Errorf("unhandled record category %q", rec.Category())
	}
	return nil
}

// TrafficCalming returns the accumulated core records in encounter order.
func (a *Accumulator) TrafficCalming() []domain.TrafficCalmingRecord { return a.calming }

// Roundabouts returns the accumulated core records in encounter order.
func (a *Accumulator) Roundabouts() []domain.RoundaboutRecord { return a.roundabouts }

// Surfaces returns the road-surface scratch sink.
func (a *Accumulator) Surfaces() ports.SpillSink { return a.surfaces }

// Ways returns the road-way scratch sink.
func (a *Accumulator) Ways() ports.SpillSink { return a.ways }

// Counts returns per-category record counts.
func (a *Accumulator) Counts() map[string]int {
	return map[string]int{
		string(domain.CategoryTrafficCalming): len(a.calming),
		string(domain.CategoryRoundabout):     len(a.roundabouts),
		string(domain.CategoryRoadSurface):    a.surfaces.Count(),
		string(domain.CategoryRoadWay):        a.ways.Count(),
	}
}
