// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package intake

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// referenceAlphabet omits 0/O and 1/I so codes survive being read aloud.
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const referenceSuffixLength = 6

// NewReferenceCode returns PREFIX-YYYYMMDD-XXXXXX for at.
func NewReferenceCode(prefix string, at time.Time) string {
	id := uuid.New()

	var b strings.Builder
	b.Grow(len(prefix) + 16)
	b.WriteString(prefix)
	b.WriteByte('-')
	b.WriteString(at.UTC().Format("20060102"))
	b.WriteByte('-')
	for i := 0; i < referenceSuffixLength; i++ {
		b.WriteByte(referenceAlphabet[int(id[i])%len(referenceAlphabet)])
	}
	return b.String()
}
