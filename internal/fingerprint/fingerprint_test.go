// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sampleSignals() DeviceSignals {
	return DeviceSignals{
		ScreenResolution: "1920x1080",
		TimezoneOffset:   "-60",
		Language:         "en-GB",
		Platform:         "Linux x86_64",
		UserAgentHash:    "ua123",
		CanvasHash:       "cv456",
		AudioHash:        "au789",
		WebGLHash:        "gl000",
	}
}

func TestHashMatchesJoinedDigest(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("1920x1080|-60|en-GB|Linux x86_64|ua123|cv456|au789|gl000"))
	want := hex.EncodeToString(sum[:])[:32]

	if got := Hash(sampleSignals()); got != want {
		t.Errorf("Hash() = %s, want %s", got, want)
	}
}

func TestHashDeterministic(t *testing.T) {
	t.Parallel()

	a := Hash(sampleSignals())
	b := Hash(sampleSignals())
	if a != b {
		t.Errorf("Hash() not deterministic: %s vs %s", a, b)
	}
	if len(a) != Length {
		t.Errorf("len(Hash()) = %d, want %d", len(a), Length)
	}
	if !Valid(a) {
		t.Errorf("Valid(%s) = false, want true", a)
	}
}

func TestHashDependsOnFieldPosition(t *testing.T) {
	t.Parallel()

	a := DeviceSignals{Language: "x"}
	b := DeviceSignals{Platform: "x"}
	if Hash(a) == Hash(b) {
		t.Error("same value in different fields produced the same hash")
	}
}

func TestHashEmptySignals(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("|||||||"))
	want := hex.EncodeToString(sum[:])[:32]
	if got := Hash(DeviceSignals{}); got != want {
		t.Errorf("Hash(empty) = %s, want %s", got, want)
	}
	if !(DeviceSignals{}).Empty() {
		t.Error("Empty() = false for zero signals")
	}
	if sampleSignals().Empty() {
		t.Error("Empty() = true for populated signals")
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"anonymous", ""},
		{" Anonymous ", ""},
		{"ABCDEF0123456789ABCDEF0123456789", "abcdef0123456789abcdef0123456789"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"abcdef0123456789abcdef0123456789", true},
		{"abcdef0123456789abcdef012345678", false},
		{"ABCDEF0123456789ABCDEF0123456789", false},
		{"zzcdef0123456789abcdef0123456789", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.in); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"abcdef0123456789abcdef0123456789", "abcdef01..."},
		{"abc", "abc..."},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
