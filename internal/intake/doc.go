// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

/*
Package intake accepts incident reports and applies review feedback.

Guard.Submit decides the fate of a submission:

  - anonymous reports are accepted at neutral trust (score 50, weight 0.5)
  - a device flooding one spot is rejected with ErrFloodDetected and nothing
    is stored
  - a low-trust device's report is stored as pending_review and held out of
    public views and clustering for one to two hours
  - anything else is stored as new

Every stored report carries a snapshot of the device's trust score and
weight taken at submission time.

Feedback applies review outcomes (fake, verified, resolved, approved) to a
report and the matching trust adjustment to its device. Repeating an
outcome that is already in effect changes nothing.
*/
package intake
