package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/geowork/roadpack/internal/core/domain"
	"github.com/geowork/roadpack/internal/core/ports"
	"github.com/geowork/roadpack/internal/pkg/metrics"
)

// QueryService answers spatial lookups against built region stores.
// Stores are opened lazily and kept open; inflating a compressed store on
// every request would dominate latency.
type QueryService struct {
	opener ports.StoreOpener
	cache  ports.CacheService

	mu     sync.Mutex
	stores map[string]ports.RegionStore
}

// NewQueryService creates a query service over the given store opener.
// cache may be nil.
func NewQueryService(opener ports.StoreOpener, cache ports.CacheService) *QueryService {
	return &QueryService{
		opener: opener,
		cache:  cache,
		stores: make(map[string]ports.RegionStore),
	}
}

// TrafficCalmingNearby returns traffic-calming records within radiusMeters
// of a point, nearest first.
func (s *QueryService) TrafficCalmingNearby(ctx context.Context, region string, lat, lon, radiusMeters float64, limit int) ([]domain.TrafficCalmingRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	cacheKey := fmt.Sprintf("calming:nearby:%s:%.4f:%.4f:%.0f:%d", region, lat, lon, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var recs []domain.TrafficCalmingRecord
			if err := json.Unmarshal(data, &recs); err == nil {
				metrics.CacheHits.WithLabelValues("calming_nearby").Inc()
				return recs, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("calming_nearby").Inc()
	}

	store, err := s.store(region)
	if err != nil {
		return nil, err
	}
	recs, err := store.TrafficCalmingNearby(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	// Stores only change on a full region rebuild; 5 minutes is safe.
	if s.cache != nil {
		if data, err := json.Marshal(recs); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}
	return recs, nil
}

// RoundaboutsNearby returns roundabouts within radiusMeters of a point,
// nearest first.
func (s *QueryService) RoundaboutsNearby(ctx context.Context, region string, lat, lon, radiusMeters float64, limit int) ([]domain.RoundaboutRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	cacheKey := fmt.Sprintf("roundabouts:nearby:%s:%.4f:%.4f:%.0f:%d", region, lat, lon, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var recs []domain.RoundaboutRecord
			if err := json.Unmarshal(data, &recs); err == nil {
				metrics.CacheHits.WithLabelValues("roundabouts_nearby").Inc()
				return recs, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("roundabouts_nearby").Inc()
	}

	store, err := s.store(region)
	if err != nil {
		return nil, err
	}
	recs, err := store.RoundaboutsNearby(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(recs); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}
	return recs, nil
}

// Stats returns row counts and metadata for a region's store.
func (s *QueryService) Stats(ctx context.Context, region string) (*domain.RegionStats, error) {
	store, err := s.store(region)
	if err != nil {
		return nil, err
	}
	return store.Stats(ctx)
}

// Close releases every opened store.
func (s *QueryService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for region, store := range s.stores {
		_ = store.Close()
		delete(s.stores, region)
	}
}

func (s *QueryService) store(region string) (ports.RegionStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if store, ok := s.stores[region]; ok {
		return store, nil
	}
	store, err := s.opener.Open(region)
	if err != nil {
		return nil, err
	}
	s.stores[region] = store
	return store, nil
}
