// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package models

import "errors"

var (
	// ErrNotFound is returned when a fingerprint, report or configuration
	// document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable is returned when the store cannot serve a request.
	// Callers may retry after a backoff.
	ErrStoreUnavailable = errors.New("store unavailable")
)
