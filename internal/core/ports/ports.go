package ports

import (
	"context"
	"io"

	"github.com/geowork/roadpack/internal/core/domain"
)

// SpillSink is an append-only scratch file for one heavy category. Each
// appended record is serialized as a self-contained JSON fragment; the
// sink's contents form the interior of a JSON array once wrapped in
// brackets. A sink belongs to exactly one running pipeline.
type SpillSink interface {
	// Append serializes one record and appends it to the sink.
	Append(v any) error
	// Count returns the number of records appended so far.
	Count() int
	// Stream copies the accumulated fragment interior to w without
	// materializing it in memory. Append must not be called afterwards.
	Stream(w io.Writer) error
	// Close releases and deletes the sink. Safe to call more than once.
	Close() error
}

// SpillFactory opens scratch sinks keyed by region and category, so that
// concurrent region runs in separate processes never collide.
type SpillFactory interface {
	Open(region string, category domain.Category) (SpillSink, error)
}

// ArtifactWriter is one bundle file being written through compression.
type ArtifactWriter interface {
	io.Writer
	// Close flushes compression and makes the file durable.
	Close() error
	// Abort discards the partially written file.
	Abort()
}

// ArtifactFactory creates bundle files in an output directory.
type ArtifactFactory interface {
	Create(dir, name string) (ArtifactWriter, error)
}

// BundleReader opens produced bundle files for the loader and the server.
type BundleReader interface {
	// Read decompresses and fully decodes the bundle at path.
	Read(path string) (*domain.BundleDocument, error)
	// ReadCore decodes the envelope and core arrays only, noting whether
	// heavy arrays are present without materializing them.
	ReadCore(path string) (*domain.CoreDocument, error)
	// EachSurface streams the roadSurfaces array, one record at a time.
	EachSurface(path string, fn func(domain.RoadSurfaceRecord) error) error
	// EachWay streams the roadWays array, one record at a time.
	EachWay(path string, fn func(domain.RoadWayRecord) error) error
}

// RegionStore answers spatial queries against one region's built store.
type RegionStore interface {
	TrafficCalmingNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.TrafficCalmingRecord, error)
	RoundaboutsNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.RoundaboutRecord, error)
	Stats(ctx context.Context) (*domain.RegionStats, error)
	Close() error
}

// StoreOpener opens the durable (compressed) store of a region.
type StoreOpener interface {
	Open(region string) (RegionStore, error)
}

// EventPublisher publishes region lifecycle events to a message broker.
type EventPublisher interface {
	PublishRegionBuilt(ctx context.Context, ev *domain.RegionEvent) error
	PublishRegionLoaded(ctx context.Context, ev *domain.RegionEvent) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
