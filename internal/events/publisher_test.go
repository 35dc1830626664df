// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package events

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/trustbond/internal/logging"
	"github.com/tomtom215/trustbond/internal/models"
)

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestReportSubmittedOmitsFingerprint(t *testing.T) {
	bus := NewGoChannel(DefaultConfig())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx, TopicReportSubmitted)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	pub := NewPublisher(bus)
	r := &models.Report{
		ID:                "r-1",
		ReferenceCode:     "TB-20260301-ABC123",
		Category:          "theft",
		DeviceFingerprint: strings.Repeat("a", 32),
		Status:            models.ReportStatusPendingReview,
		IsDelayed:         true,
		CreatedAt:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	pub.ReportSubmitted(logging.ContextWithRequestID(ctx, "req-1"), r)

	msg := receive(t, ch)
	if strings.Contains(string(msg.Payload), r.DeviceFingerprint) {
		t.Errorf("payload %s contains the device fingerprint", msg.Payload)
	}
	if got := msg.Metadata.Get(MetadataEventType); got != TopicReportSubmitted {
		t.Errorf("event_type = %q, want %q", got, TopicReportSubmitted)
	}
	if got := msg.Metadata.Get(MetadataCorrelationID); got != "req-1" {
		t.Errorf("correlation_id = %q, want req-1", got)
	}

	var ev ReportSubmitted
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if ev.ReportID != "r-1" || !ev.Delayed || ev.Status != models.ReportStatusPendingReview {
		t.Errorf("event = %+v", ev)
	}
}

func TestClustersRefreshed(t *testing.T) {
	bus := NewGoChannel(DefaultConfig())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx, TopicClustersRefreshed)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clusters := []models.Cluster{
		{RiskLevel: models.RiskCritical},
		{RiskLevel: models.RiskHigh},
		{RiskLevel: models.RiskMedium},
		{RiskLevel: models.RiskCritical},
	}
	NewPublisher(bus).ClustersRefreshed(ctx, NewClustersRefreshed("run-1", clusters, at))

	var ev ClustersRefreshed
	if err := json.Unmarshal(receive(t, ch).Payload, &ev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if ev.RunID != "run-1" || ev.ClusterCount != 4 || ev.CriticalCount != 2 || ev.HighCount != 1 {
		t.Errorf("event = %+v, want run-1 with 4 clusters, 2 critical, 1 high", ev)
	}
	if !ev.GeneratedAt.Equal(at) {
		t.Errorf("GeneratedAt = %v, want %v", ev.GeneratedAt, at)
	}
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(string, ...*message.Message) error {
	f.calls++
	return errors.New("broker down")
}

func (f *failingPublisher) Close() error { return nil }

func TestPublishFailureIsSwallowed(t *testing.T) {
	fp := &failingPublisher{}
	pub := NewPublisher(fp)

	pub.ReportSubmitted(context.Background(), &models.Report{ID: "r-1"})
	if fp.calls != 1 {
		t.Errorf("Publish calls = %d, want 1", fp.calls)
	}
}

func TestClosedPublisherDrops(t *testing.T) {
	fp := &failingPublisher{}
	pub := NewPublisher(fp)
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	pub.ReportSubmitted(context.Background(), &models.Report{ID: "r-1"})
	if fp.calls != 0 {
		t.Errorf("Publish calls after Close = %d, want 0", fp.calls)
	}
}

func TestNilPublisher(t *testing.T) {
	pub := NewPublisher(nil)
	pub.ClustersRefreshed(context.Background(), ClustersRefreshed{RunID: "x"})
	if err := pub.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
