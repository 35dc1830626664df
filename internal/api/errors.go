// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/trustbond/internal/intake"
	"github.com/tomtom215/trustbond/internal/models"
	"github.com/tomtom215/trustbond/internal/scheduler"
	"github.com/tomtom215/trustbond/internal/trust"
)

// Error codes used in APIError.Code.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeFloodDetected      = "FLOOD_DETECTED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
)

// statusForError maps an error to its HTTP status and error code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, intake.ErrInvalidSubmission),
		errors.Is(err, trust.ErrInvalidFingerprint),
		errors.Is(err, trust.ErrAmbiguousPrefix):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, intake.ErrFeedbackConflict),
		errors.Is(err, scheduler.ErrCycleInProgress):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, intake.ErrFloodDetected):
		return http.StatusTooManyRequests, CodeFloodDetected
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, CodeServiceUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// clientMessage is the message shown for err. Internal failures are not
// described to the client.
func clientMessage(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		return "Internal server error"
	case http.StatusServiceUnavailable:
		return "Service temporarily unavailable"
	case http.StatusTooManyRequests:
		return "Too many reports from this device in this area"
	case http.StatusNotFound:
		return "Resource not found"
	default:
		return err.Error()
	}
}
