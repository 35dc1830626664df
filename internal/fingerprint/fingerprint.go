// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

// Package fingerprint derives pseudonymous device identifiers.
//
// A fingerprint is the first 128 bits of a SHA-256 digest over a fixed
// ordered set of coarse device signals. It is stable for one device
// configuration, cannot be reversed to the inputs, and may collide across
// identically configured devices.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Length is the number of hex characters in a fingerprint.
const Length = 32

// MaskLength is the number of leading characters kept by Mask.
const MaskLength = 8

// anonymousMarker is accepted from clients in place of an empty fingerprint.
const anonymousMarker = "anonymous"

// DeviceSignals are the coarse, non-identifying properties a client reports.
// Hash values are computed client side.
type DeviceSignals struct {
	ScreenResolution string `json:"screen_resolution" validate:"max=32"`
	TimezoneOffset   string `json:"timezone_offset" validate:"max=16"`
	Language         string `json:"language" validate:"max=35"`
	Platform         string `json:"platform" validate:"max=64"`
	UserAgentHash    string `json:"user_agent_hash" validate:"max=128"`
	CanvasHash       string `json:"canvas_hash" validate:"max=128"`
	AudioHash        string `json:"audio_hash" validate:"max=128"`
	WebGLHash        string `json:"webgl_hash" validate:"max=128"`
}

// Empty reports whether no signal was supplied.
func (s DeviceSignals) Empty() bool {
	return s == DeviceSignals{}
}

// Hash returns the fingerprint of s. Signals are joined with "|" in a fixed
// order so that the result only depends on their values.
func Hash(s DeviceSignals) string {
	joined := strings.Join([]string{
		s.ScreenResolution,
		s.TimezoneOffset,
		s.Language,
		s.Platform,
		s.UserAgentHash,
		s.CanvasHash,
		s.AudioHash,
		s.WebGLHash,
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])[:Length]
}

// Normalize lower-cases fp and maps the anonymous marker to "".
func Normalize(fp string) string {
	fp = strings.ToLower(strings.TrimSpace(fp))
	if fp == anonymousMarker {
		return ""
	}
	return fp
}

// Valid reports whether fp is a well-formed fingerprint.
func Valid(fp string) bool {
	if len(fp) != Length {
		return false
	}
	for i := 0; i < len(fp); i++ {
		c := fp[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Mask returns the first eight characters of fp followed by "...". It is
// the only form in which a fingerprint may appear in logs or admin output.
func Mask(fp string) string {
	if fp == "" {
		return ""
	}
	if len(fp) <= MaskLength {
		return fp + "..."
	}
	return fp[:MaskLength] + "..."
}
