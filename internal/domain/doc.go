// Package domain defines the core types of the detection-reconciliation
// engine and the pure functions that operate on them.
//
// # Core Types
//
// Detection is one row reported by an anchor: which anchor heard which device
// (MAC or SSID) at what signal strength, and the floor block it was placed in.
//
// WhitelistEntry is an operator-approved MAC. WhitelistIndex is the per-cycle
// membership set built from all entries.
//
// ReconciledSet is the deduplicated, whitelist-filtered view of the latest
// detection batch. Snapshot pairs it with the cycle that produced it.
//
// # Reconciliation
//
// Exclude drops trusted devices, Dedupe keeps the last detection per identity
// and Diff compares a new set with the prior one. All three are pure; the
// service layer owns fetching and committing.
//
// # Identity
//
// A detection's identity is its normalized SSID, falling back to the MAC and
// then to a canonical encoding of the whole record, so two detections are the
// same device exactly when their identities match.
package domain
