package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/geowork/roadpack/internal/core/domain"
	"github.com/geowork/roadpack/internal/core/ports"
	"github.com/geowork/roadpack/internal/pkg/geospatial"
	"github.com/geowork/roadpack/internal/pkg/metrics"
)

// ErrMissingCoreBundle is returned when the region's core bundle file does
// not exist. Heavy bundles are optional; the core one is not.
var ErrMissingCoreBundle = errors.New("core bundle not found")

// Loader builds a region's indexed store from its bundle files. All rows
// for a region are inserted inside one transaction; any failure rolls the
// whole transaction back and removes the partial store file. On success
// the store is compressed and the uncompressed intermediate is removed.
type Loader struct {
	bundles ports.BundleReader
	log     *slog.Logger
}

// NewLoader creates a loader reading bundles through r.
func NewLoader(r ports.BundleReader, log *slog.Logger) *Loader {
	return &Loader{bundles: r, log: log}
}

// LoadResult summarizes one region load.
type LoadResult struct {
	Region         string
	Version        string
	Rows           map[string]int
	HasSurfaceData bool
	HasWayData     bool
	StorePath      string
}

// LoadRegion reads whichever bundle files exist for region in bundleDir
// and builds the durable compressed store in storeDir.
func (l *Loader) LoadRegion(ctx context.Context, region, bundleDir, storeDir string) (res *LoadResult, err error) {
	start := time.Now()

	corePath := filepath.Join(bundleDir, domain.CoreBundleName(region))
	if _, statErr := os.Stat(corePath); statErr != nil {
		metrics.LoadsTotal.WithLabelValues("missing_core").Inc()
		return nil, fmt.Errorf("region %s: %w: %s", region, ErrMissingCoreBundle, corePath)
	}

	core, err := l.bundles.ReadCore(corePath)
	if err != nil {
		metrics.LoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("region %s: %w", region, err)
	}

	storePath := filepath.Join(storeDir, domain.StoreName(region))
	finalPath := filepath.Join(storeDir, domain.CompressedStoreName(region))

	// A rebuild replaces the whole store; stale intermediates from a
	// crashed run are removed up front.
	_ = os.Remove(storePath)

	defer func() {
		if err != nil {
			_ = os.Remove(storePath)
			metrics.LoadsTotal.WithLabelValues("error").Inc()
		}
	}()

	db, err := open(ctx, storePath)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", region, err)
	}
	defer db.Close()

	if _, err = db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("region %s: create schema: %w", region, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("region %s: begin: %w", region, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows := make(map[string]int)

	if rows["traffic_calming"], err = l.loadTrafficCalming(ctx, tx, core.TrafficCalming); err != nil {
		return nil, fmt.Errorf("region %s: traffic_calming: %w", region, err)
	}
	if rows["roundabouts"], err = l.loadRoundabouts(ctx, tx, core.Roundabouts); err != nil {
		return nil, fmt.Errorf("region %s: roundabouts: %w", region, err)
	}

	surfaceSrc, hasSurfaces := l.heavySource(core.HasSurfaces, corePath, bundleDir, region, domain.BundleSurfaces)
	if hasSurfaces {
		if rows["road_surfaces"], err = l.loadSurfaces(ctx, tx, surfaceSrc); err != nil {
			return nil, fmt.Errorf("region %s: road_surfaces: %w", region, err)
		}
	} else {
		l.log.Info("surface bundle absent, skipping", "region", region)
	}

	waySrc, hasWays := l.heavySource(core.HasWays, corePath, bundleDir, region, domain.BundleWays)
	if hasWays {
		if rows["road_ways"], err = l.loadWays(ctx, tx, waySrc); err != nil {
			return nil, fmt.Errorf("region %s: road_ways: %w", region, err)
		}
	} else {
		l.log.Info("way bundle absent, skipping", "region", region)
	}

	if err = l.writeMetadata(ctx, tx, core, region, hasSurfaces, hasWays); err != nil {
		return nil, fmt.Errorf("region %s: metadata: %w", region, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("region %s: commit: %w", region, err)
	}
	if err = db.Close(); err != nil {
		return nil, fmt.Errorf("region %s: close store: %w", region, err)
	}

	if err = compressStore(storePath, finalPath); err != nil {
		_ = os.Remove(finalPath)
		return nil, fmt.Errorf("region %s: finalize: %w", region, err)
	}
	if err = os.Remove(storePath); err != nil {
		return nil, fmt.Errorf("region %s: remove intermediate: %w", region, err)
	}

	for table, n := range rows {
		metrics.RowsLoaded.WithLabelValues(table).Add(float64(n))
	}
	metrics.LoadsTotal.WithLabelValues("ok").Inc()
	l.log.Info("region loaded",
		"region", region,
		"version", core.Version,
		"store", finalPath,
		"rows", rows,
		"has_surface_data", hasSurfaces,
		"has_way_data", hasWays,
		"took", time.Since(start).String(),
	)

	return &LoadResult{
		Region:         region,
		Version:        core.Version,
		Rows:           rows,
		HasSurfaceData: hasSurfaces,
		HasWayData:     hasWays,
		StorePath:      finalPath,
	}, nil
}

// heavySource decides where a heavy category's records come from: inline
// in a single-mode core bundle, a split-mode heavy bundle, or nowhere.
func (l *Loader) heavySource(inline bool, corePath, bundleDir, region, kind string) (string, bool) {
	if inline {
		return corePath, true
	}
	path := filepath.Join(bundleDir, domain.HeavyBundleName(region, kind))
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

func (l *Loader) loadTrafficCalming(ctx context.Context, tx *sql.Tx, recs []domain.TrafficCalmingRecord) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO traffic_calming (lat, lon, type, end_lat, end_lon, way_id, tags_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, r := range recs {
		var tagsJSON any
		if r.Tags != nil {
			data, err := json.Marshal(r.Tags)
			if err != nil {
				return 0, err
			}
			tagsJSON = string(data)
		}
		if _, err := stmt.ExecContext(ctx, r.Lat, r.Lon, r.Type,
			nilable(r.EndLat), nilable(r.EndLon), nilable(r.WayID), tagsJSON); err != nil {
			return 0, err
		}
	}
	return len(recs), nil
}

func (l *Loader) loadRoundabouts(ctx context.Context, tx *sql.Tx, recs []domain.RoundaboutRecord) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO roundabouts (lat, lon, radius, type) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, r.Lat, r.Lon, r.Radius, r.Type); err != nil {
			return 0, err
		}
	}
	return len(recs), nil
}

func (l *Loader) loadSurfaces(ctx context.Context, tx *sql.Tx, path string) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO road_surfaces (surface, coords_json, min_lat, max_lat, min_lon, max_lon)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	err = l.bundles.EachSurface(path, func(rec domain.RoadSurfaceRecord) error {
		return insertSegment(ctx, stmt, rec.Surface, rec.Coords, &count)
	})
	return count, err
}

func (l *Loader) loadWays(ctx context.Context, tx *sql.Tx, path string) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO road_ways (highway, coords_json, min_lat, max_lat, min_lon, max_lon)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	err = l.bundles.EachWay(path, func(rec domain.RoadWayRecord) error {
		return insertSegment(ctx, stmt, rec.Highway, rec.Coords, &count)
	})
	return count, err
}

// insertSegment computes the bounding box and inserts one geometry row.
// Records with fewer than two coordinate pairs have no defined box; the
// builder never emits them, and a tampered bundle's stray record is
// dropped rather than failing the region.
func insertSegment(ctx context.Context, stmt *sql.Stmt, label string, coords []float64, count *int) error {
	bounds, ok := geospatial.BoundsOf(coords)
	if !ok {
		return nil
	}
	coordsJSON, err := json.Marshal(coords)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, label, string(coordsJSON),
		bounds.MinLat, bounds.MaxLat, bounds.MinLon, bounds.MaxLon); err != nil {
		return err
	}
	*count++
	return nil
}

func (l *Loader) writeMetadata(ctx context.Context, tx *sql.Tx, core *domain.CoreDocument, region string, hasSurfaces, hasWays bool) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO metadata (key, value) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, kv := range [][2]string{
		{"version", core.Version},
		{"region", region},
		{"builtAt", time.Now().UTC().Format(time.RFC3339)},
		{"hasSurfaceData", boolValue(hasSurfaces)},
		{"hasWayData", boolValue(hasWays)},
	} {
		if _, err := stmt.ExecContext(ctx, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func compressStore(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func nilable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolValue(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
