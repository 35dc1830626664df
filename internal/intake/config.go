// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package intake

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrFloodDetected rejects a submission from a device that is flooding
	// one location.
	ErrFloodDetected = errors.New("too many reports from this device at this location")

	// ErrInvalidSubmission wraps a validation failure.
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrFeedbackConflict rejects feedback that contradicts the report's
	// current state, such as verifying a report already marked fake.
	ErrFeedbackConflict = errors.New("feedback conflicts with report state")
)

// Config configures intake.
type Config struct {
	// Low-trust reports are held for DelayBase plus a uniform random
	// duration in [0, DelayJitter).
	DelayBase   time.Duration
	DelayJitter time.Duration

	// ReferencePrefix starts every reference code.
	ReferencePrefix string

	// ReferenceAttempts bounds retries on a reference code collision.
	ReferenceAttempts int

	// QueueLimit caps admin report lists.
	QueueLimit int
}

// DefaultConfig returns a 1h base delay with up to 1h jitter.
func DefaultConfig() Config {
	return Config{
		DelayBase:         time.Hour,
		DelayJitter:       time.Hour,
		ReferencePrefix:   "TB",
		ReferenceAttempts: 3,
		QueueLimit:        100,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.DelayBase < 0 || c.DelayJitter < 0 {
		return fmt.Errorf("delay durations must not be negative")
	}
	if c.ReferencePrefix == "" {
		return fmt.Errorf("reference_prefix is required")
	}
	if c.ReferenceAttempts <= 0 {
		return fmt.Errorf("reference_attempts must be positive")
	}
	if c.QueueLimit <= 0 {
		return fmt.Errorf("queue_limit must be positive")
	}
	return nil
}
