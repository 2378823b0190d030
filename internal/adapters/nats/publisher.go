package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/geowork/roadpack/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream. Region
// lifecycle events let downstream packaging and mirror jobs react to
// fresh artifacts without polling the output directory.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the region event stream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "ROADPACK_REGIONS",
		Subjects:  []string{"roadpack.region.>"},
		Retention: nats.InterestPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishRegionBuilt announces that a region's bundles were produced.
func (p *Publisher) PublishRegionBuilt(ctx context.Context, ev *domain.RegionEvent) error {
	return p.publish("roadpack.region.built."+ev.Region, ev)
}

// PublishRegionLoaded announces that a region's store was finalized.
func (p *Publisher) PublishRegionLoaded(ctx context.Context, ev *domain.RegionEvent) error {
	return p.publish("roadpack.region.loaded."+ev.Region, ev)
}

func (p *Publisher) publish(subject string, ev *domain.RegionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
