package http

import (
	"github.com/geowork/roadpack/internal/core/ports"
	"github.com/geowork/roadpack/internal/core/usecases"
)

// Dependencies carries the services handlers need.
type Dependencies struct {
	Queries   *usecases.QueryService
	Cache     ports.CacheService
	BundleDir string
	StoreDir  string
}
