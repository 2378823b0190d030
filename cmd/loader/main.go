package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geowork/roadpack/internal/adapters/bundle"
	natsadapter "github.com/geowork/roadpack/internal/adapters/nats"
	"github.com/geowork/roadpack/internal/adapters/sqlite"
	"github.com/geowork/roadpack/internal/core/domain"
	"github.com/geowork/roadpack/internal/pkg/config"
	"github.com/geowork/roadpack/internal/pkg/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: loader <region>")
	}
	region := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(cfg.Store.Dir, 0o755); err != nil {
		log.Fatalf("create store dir: %v", err)
	}

	loader := sqlite.NewLoader(bundle.Reader{}, logger)
	result, err := loader.LoadRegion(ctx, region, cfg.Bundle.Dir, cfg.Store.Dir)
	if err != nil {
		log.Fatalf("load region %s: %v", region, err)
	}

	publishLoaded(cfg, logger, result)

	fmt.Printf("region %s version %s -> %s: %v\n", result.Region, result.Version, result.StorePath, result.Rows)
}

func publishLoaded(cfg *config.Config, logger *slog.Logger, result *sqlite.LoadResult) {
	if !cfg.NATS.Enabled {
		return
	}
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		logger.Warn("nats unavailable, skipping load event", "error", err)
		return
	}
	defer pub.Close()

	ev := &domain.RegionEvent{
		Region:  result.Region,
		Version: result.Version,
		Counts:  result.Rows,
		Files:   []string{result.StorePath},
		At:      time.Now().UTC(),
	}
	if err := pub.PublishRegionLoaded(context.Background(), ev); err != nil {
		logger.Warn("publish load event failed", "error", err)
	}
}
