// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package services

import (
	"context"
	"fmt"
)

// SchedulerManager matches the Start/Stop lifecycle of the background jobs.
//
// Satisfied by *scheduler.ClusterScheduler and *scheduler.RetentionSweeper.
type SchedulerManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService wraps a Start/Stop job as a supervised service.
type SchedulerService struct {
	manager SchedulerManager
	name    string
}

// NewClusterSchedulerService wraps the clustering scheduler.
func NewClusterSchedulerService(manager SchedulerManager) *SchedulerService {
	return &SchedulerService{manager: manager, name: "cluster-scheduler"}
}

// NewRetentionSweeperService wraps the retention sweeper.
func NewRetentionSweeperService(manager SchedulerManager) *SchedulerService {
	return &SchedulerService{manager: manager, name: "retention-sweeper"}
}

// Serve implements suture.Service. It starts the job, blocks until ctx is
// canceled and then stops it. A failed Start is returned so suture
// restarts the service with backoff.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("%s stop failed: %w", s.name, err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer. Suture uses it in log messages.
func (s *SchedulerService) String() string {
	return s.name
}
