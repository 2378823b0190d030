package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geowork/roadpack/internal/adapters/bundle"
	natsadapter "github.com/geowork/roadpack/internal/adapters/nats"
	"github.com/geowork/roadpack/internal/adapters/spill"
	"github.com/geowork/roadpack/internal/core/domain"
	"github.com/geowork/roadpack/internal/core/usecases"
	"github.com/geowork/roadpack/internal/pkg/config"
	"github.com/geowork/roadpack/internal/pkg/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: builder <region> [features.ndjson]")
	}
	region := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var in io.Reader = os.Stdin
	inputName := "stdin"
	if len(os.Args) > 2 && os.Args[2] != "-" {
		f, err := os.Open(os.Args[2])
		if err != nil {
			log.Fatalf("open input: %v", err)
		}
		defer f.Close()
		in = f
		inputName = os.Args[2]
	}

	if err := os.MkdirAll(cfg.Bundle.Dir, 0o755); err != nil {
		log.Fatalf("create bundle dir: %v", err)
	}

	logger.Info("building region", "region", region, "input", inputName, "mode", cfg.Bundle.Mode)

	svc := usecases.NewBuildService(
		spill.Factory{Dir: cfg.Spill.Dir},
		bundle.Factory{},
		usecases.BundleMode(cfg.Bundle.Mode),
		logger,
	)

	result, err := svc.Build(ctx, region, in, cfg.Bundle.Dir)
	if err != nil {
		log.Fatalf("build region %s: %v", region, err)
	}

	publishBuilt(cfg, logger, result)

	fmt.Printf("region %s version %s: %v\n", result.Region, result.Version, result.Counts)
}

func publishBuilt(cfg *config.Config, logger *slog.Logger, result *usecases.BuildResult) {
	if !cfg.NATS.Enabled {
		return
	}
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		logger.Warn("nats unavailable, skipping build event", "error", err)
		return
	}
	defer pub.Close()

	ev := &domain.RegionEvent{
		Region:  result.Region,
		Version: result.Version,
		Counts:  result.Counts,
		Files:   result.Files,
		At:      time.Now().UTC(),
	}
	if err := pub.PublishRegionBuilt(context.Background(), ev); err != nil {
		logger.Warn("publish build event failed", "error", err)
	}
}
