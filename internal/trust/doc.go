// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

/*
Package trust keeps the pseudonymous trust state of reporting devices.

# Components

  - Ledger: the only writer of fingerprint records. Every adjustment is a
    single atomic read-modify-write that clamps the score to [0, 100],
    appends a history entry and trims history to the newest 50 entries.
  - FloodDetector: rejects bursts of reports from one device at one place
    and penalizes the device.
  - WeightCalculator: maps a score to the weight its reports carry during
    clustering.

# Scores

New devices start at 50. Confirmed reports raise the score (+5 verified,
+3 resolved), fake reports lower it (-20), and floods lower it (-10).
Devices below 40 are low trust: their reports are delayed before
publication and weighted at 0.1.

Records that have not been touched for 30 days are deleted by PurgeStale.
*/
package trust
