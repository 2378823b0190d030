package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/geowork/roadpack/internal/core/domain"
	"github.com/geowork/roadpack/internal/core/ports"
	"github.com/geowork/roadpack/internal/core/usecases"
)

// countingStore records how often it is queried and with what limit.
type countingStore struct {
	calls     int
	lastLimit int
}

func (s *countingStore) TrafficCalmingNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.TrafficCalmingRecord, error) {
	s.calls++
	s.lastLimit = limit
	return []domain.TrafficCalmingRecord{{Lat: lat, Lon: lon, Type: domain.CalmingSpeedBump}}, nil
}

func (s *countingStore) RoundaboutsNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.RoundaboutRecord, error) {
	s.calls++
	s.lastLimit = limit
	return nil, nil
}

func (s *countingStore) Stats(ctx context.Context) (*domain.RegionStats, error) {
	return &domain.RegionStats{Region: "bizkaia"}, nil
}

func (s *countingStore) Close() error { return nil }

type countingOpener struct {
	store *countingStore
	opens int
}

func (o *countingOpener) Open(region string) (ports.RegionStore, error) {
	if region != "bizkaia" {
		return nil, fmt.Errorf("open store for region %s: %w", region, fs.ErrNotExist)
	}
	o.opens++
	return o.store, nil
}

// mapCache is an in-process CacheService for tests.
type mapCache struct {
	data map[string][]byte
	sets int
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.data[key] = value
	c.sets++
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func TestQueryService_OpensStoreOnce(t *testing.T) {
	opener := &countingOpener{store: &countingStore{}}
	svc := usecases.NewQueryService(opener, nil)
	defer svc.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.TrafficCalmingNearby(ctx, "bizkaia", 43.26, -2.93, 500, 10); err != nil {
			t.Fatalf("query %d: %v", i, err)
		}
	}
	if opener.opens != 1 {
		t.Errorf("expected one store open, got %d", opener.opens)
	}
	if opener.store.calls != 3 {
		t.Errorf("expected 3 store queries, got %d", opener.store.calls)
	}
}

func TestQueryService_ReadThroughCache(t *testing.T) {
	opener := &countingOpener{store: &countingStore{}}
	cache := newMapCache()
	svc := usecases.NewQueryService(opener, cache)
	defer svc.Close()

	ctx := context.Background()
	first, err := svc.TrafficCalmingNearby(ctx, "bizkaia", 43.26, -2.93, 500, 10)
	if err != nil {
		t.Fatalf("first query: %v", err)
	}
	if cache.sets != 1 {
		t.Errorf("expected result cached, sets = %d", cache.sets)
	}

	second, err := svc.TrafficCalmingNearby(ctx, "bizkaia", 43.26, -2.93, 500, 10)
	if err != nil {
		t.Fatalf("second query: %v", err)
	}
	if opener.store.calls != 1 {
		t.Errorf("expected second query served from cache, store calls = %d", opener.store.calls)
	}
	if len(first) != len(second) || first[0].Type != second[0].Type {
		t.Errorf("cached result diverged: %+v vs %+v", first, second)
	}
}

func TestQueryService_ClampsLimit(t *testing.T) {
	opener := &countingOpener{store: &countingStore{}}
	svc := usecases.NewQueryService(opener, nil)
	defer svc.Close()

	ctx := context.Background()
	for _, limit := range []int{0, -5, 1000} {
		if _, err := svc.TrafficCalmingNearby(ctx, "bizkaia", 43.26, -2.93, 500, limit); err != nil {
			t.Fatalf("query: %v", err)
		}
		if opener.store.lastLimit != 50 {
			t.Errorf("limit %d: expected clamp to 50, store saw %d", limit, opener.store.lastLimit)
		}
	}
}

func TestQueryService_UnknownRegion(t *testing.T) {
	svc := usecases.NewQueryService(&countingOpener{store: &countingStore{}}, nil)
	defer svc.Close()

	_, err := svc.Stats(context.Background(), "atlantis")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}
