package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"

	"github.com/geowork/roadpack/internal/core/domain"
	"github.com/geowork/roadpack/internal/core/ports"
	"github.com/geowork/roadpack/internal/pkg/geospatial"
)

// Opener opens compressed region stores from a directory. The gzip form
// is the durable artifact; a store is inflated to a scratch file before
// SQLite can read it.
type Opener struct {
	Dir string
}

// Open inflates and opens the store for region.
func (o Opener) Open(region string) (ports.RegionStore, error) {
	path := filepath.Join(o.Dir, domain.CompressedStoreName(region))

	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store for region %s: %w", region, err)
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("decompress store for region %s: %w", region, err)
	}
	defer gz.Close()

	tmp, err := os.CreateTemp("", "roadpack-store-"+region+"-*.db")
	if err != nil {
		return nil, fmt.Errorf("inflate store for region %s: %w", region, err)
	}
	if _, err := tmp.ReadFrom(gz); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("inflate store for region %s: %w", region, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("inflate store for region %s: %w", region, err)
	}

	db, err := openReadOnly(context.Background(), tmp.Name())
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, err
	}
	return &Store{db: db, tmpPath: tmp.Name()}, nil
}

// Store answers spatial queries against one region's inflated store.
type Store struct {
	db      *sql.DB
	tmpPath string
}

// TrafficCalmingNearby returns records within radiusMeters of a point,
// nearest first. The (lat, lon) index prefilters by bounding box; the
// exact haversine check runs on the survivors.
func (s *Store) TrafficCalmingNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.TrafficCalmingRecord, error) {
	box := geospatial.SearchBox(lat, lon, radiusMeters)

	rows, err := s.db.QueryContext(ctx, `
		SELECT lat, lon, type, end_lat, end_lon, way_id, tags_json
		FROM traffic_calming
		WHERE lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?
	`, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type withDist struct {
		rec  domain.TrafficCalmingRecord
		dist float64
	}
	var found []withDist
	for rows.Next() {
		var r domain.TrafficCalmingRecord
		var endLat, endLon sql.NullFloat64
		var wayID sql.NullInt64
		var tagsJSON sql.NullString
		if err := rows.Scan(&r.Lat, &r.Lon, &r.Type, &endLat, &endLon, &wayID, &tagsJSON); err != nil {
			return nil, err
		}
		if endLat.Valid {
			r.EndLat = &endLat.Float64
		}
		if endLon.Valid {
			r.EndLon = &endLon.Float64
		}
		if wayID.Valid {
			r.WayID = &wayID.Int64
		}
		if tagsJSON.Valid {
			if err := json.Unmarshal([]byte(tagsJSON.String), &r.Tags); err != nil {
				return nil, fmt.Errorf("decode tags_json: %w", err)
			}
		}
		d := geospatial.Haversine(lat, lon, r.Lat, r.Lon)
		if d <= radiusMeters {
			found = append(found, withDist{rec: r, dist: d})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].dist < found[j].dist })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]domain.TrafficCalmingRecord, len(found))
	for i, f := range found {
		out[i] = f.rec
	}
	return out, nil
}

// RoundaboutsNearby returns roundabouts within radiusMeters of a point,
// nearest first.
func (s *Store) RoundaboutsNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.RoundaboutRecord, error) {
	box := geospatial.SearchBox(lat, lon, radiusMeters)

	rows, err := s.db.QueryContext(ctx, `
		SELECT lat, lon, radius, type
		FROM roundabouts
		WHERE lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?
	`, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type withDist struct {
		rec  domain.RoundaboutRecord
		dist float64
	}
	var found []withDist
	for rows.Next() {
		var r domain.RoundaboutRecord
		if err := rows.Scan(&r.Lat, &r.Lon, &r.Radius, &r.Type); err != nil {
			return nil, err
		}
		d := geospatial.Haversine(lat, lon, r.Lat, r.Lon)
		if d <= radiusMeters {
			found = append(found, withDist{rec: r, dist: d})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].dist < found[j].dist })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]domain.RoundaboutRecord, len(found))
	for i, f := range found {
		out[i] = f.rec
	}
	return out, nil
}

// Stats returns row counts and metadata for the region.
func (s *Store) Stats(ctx context.Context) (*domain.RegionStats, error) {
	var stats domain.RegionStats

	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM traffic_calming),
			(SELECT count(*) FROM roundabouts),
			(SELECT count(*) FROM road_surfaces),
			(SELECT count(*) FROM road_ways)
	`)
	if err := row.Scan(&stats.TrafficCalming, &stats.Roundabouts,
		&stats.RoadSurfaces, &stats.RoadWays); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM metadata`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		switch key {
		case "version":
			stats.Version = value
		case "region":
			stats.Region = value
		case "builtAt":
			stats.BuiltAt = value
		case "hasSurfaceData":
			stats.HasSurfaceData = value == "true"
		case "hasWayData":
			stats.HasWayData = value == "true"
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Close releases the database and removes the inflated scratch file.
func (s *Store) Close() error {
	err := s.db.Close()
	if rmErr := os.Remove(s.tmpPath); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}
