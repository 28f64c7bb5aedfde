// Package service implements business logic for anchorwatch.
//
// This package coordinates between the HTTP handlers, the scheduler and the
// repository layer.
//
// # Services
//
// Reconciler runs one detection-reconciliation cycle: fetch the whitelist and
// the latest detection batch, drop trusted devices, deduplicate by identity
// and diff against the prior set.
//
// Monitor owns the committed reconciled set. It runs cycles one at a time,
// keeps the prior set when a cycle fails and publishes the results.
//
// WhitelistService validates operator submissions and seed files before
// inserting into the whitelist, then asks for a fresh cycle.
//
// IngestService turns anchor RSSI readings into detection rows tagged with a
// floor block. AnchorService tracks probe status per anchor.
//
// # Event System
//
// Services publish events via EventBus for real-time updates to connected
// clients via Server-Sent Events (SSE): detections_updated, notification,
// whitelist_added, source_error and anchor_status.
package service
