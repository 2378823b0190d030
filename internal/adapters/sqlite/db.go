// Package sqlite builds and queries the per-region indexed store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE traffic_calming (
	lat       REAL NOT NULL,
	lon       REAL NOT NULL,
	type      TEXT NOT NULL,
	end_lat   REAL,
	end_lon   REAL,
	way_id    INTEGER,
	tags_json TEXT
);
CREATE INDEX idx_traffic_calming_pos ON traffic_calming (lat, lon);

CREATE TABLE roundabouts (
	lat    REAL NOT NULL,
	lon    REAL NOT NULL,
	radius INTEGER,
	type   TEXT NOT NULL
);
CREATE INDEX idx_roundabouts_pos ON roundabouts (lat, lon);

CREATE TABLE road_surfaces (
	surface     TEXT NOT NULL,
	coords_json TEXT NOT NULL,
	min_lat     REAL NOT NULL,
	max_lat     REAL NOT NULL,
	min_lon     REAL NOT NULL,
	max_lon     REAL NOT NULL
);
CREATE INDEX idx_road_surfaces_bbox ON road_surfaces (min_lat, max_lat, min_lon, max_lon);

CREATE TABLE road_ways (
	highway     TEXT NOT NULL,
	coords_json TEXT NOT NULL,
	min_lat     REAL NOT NULL,
	max_lat     REAL NOT NULL,
	min_lon     REAL NOT NULL,
	max_lon     REAL NOT NULL
);
CREATE INDEX idx_road_ways_bbox ON road_ways (min_lat, max_lat, min_lon, max_lon);

CREATE TABLE metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// open opens a store file for building. The store is written by exactly
// one process and rebuilt from scratch, so journaling is dialed down for
// bulk-insert throughput.
func open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = MEMORY",
		"PRAGMA synchronous = OFF",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure store %s: %w", path, err)
		}
	}
	return db, nil
}

// openReadOnly opens an inflated store file for querying.
func openReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return db, nil
}
