// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trustbond/internal/logging"
	"github.com/tomtom215/trustbond/internal/metrics"
	"github.com/tomtom215/trustbond/internal/models"
)

// Metadata keys set on every message.
const (
	MetadataEventType     = "event_type"
	MetadataCorrelationID = "correlation_id"
)

// Config configures the in-process bus.
type Config struct {
	// Enabled turns publishing on. When false Publisher methods are no-ops.
	Enabled bool `koanf:"enabled"`

	// OutputBuffer is the per-subscriber channel buffer.
	OutputBuffer int64 `koanf:"output_buffer"`
}

// DefaultConfig enables publishing with a buffer of 256 messages.
func DefaultConfig() Config {
	return Config{Enabled: true, OutputBuffer: 256}
}

// NewGoChannel creates the in-process pub/sub used when no external broker
// is configured.
func NewGoChannel(cfg Config) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.OutputBuffer,
	}, NewWatermillLogger(logging.WithComponent("watermill")))
}

// Publisher serializes domain events onto a Watermill publisher. Failures
// are logged and counted but never returned: an event that cannot be
// delivered must not fail the operation that produced it.
type Publisher struct {
	pub    message.Publisher
	logger zerolog.Logger
	mu     sync.RWMutex
	closed bool
}

// NewPublisher wraps pub. A nil pub yields a publisher that drops events.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{
		pub:    pub,
		logger: logging.WithComponent("events"),
	}
}

// ReportSubmitted publishes r on TopicReportSubmitted.
func (p *Publisher) ReportSubmitted(ctx context.Context, r *models.Report) {
	p.publish(ctx, TopicReportSubmitted, NewReportSubmitted(r))
}

// ClustersRefreshed publishes a run summary on TopicClustersRefreshed.
func (p *Publisher) ClustersRefreshed(ctx context.Context, ev ClustersRefreshed) {
	p.publish(ctx, TopicClustersRefreshed, ev)
}

func (p *Publisher) publish(ctx context.Context, topic string, payload interface{}) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.pub == nil || p.closed {
		return
	}

	err := p.send(ctx, topic, payload)
	metrics.RecordEventPublished(topic, err)
	if err != nil {
		p.logger.Warn().Err(err).Str("topic", topic).Msg("Event publish failed")
	}
}

func (p *Publisher) send(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(MetadataEventType, topic)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}
	msg.SetContext(ctx)

	if err := p.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close stops publishing and closes the underlying publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.pub == nil {
		p.closed = true
		return nil
	}
	p.closed = true
	return p.pub.Close()
}
