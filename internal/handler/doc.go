// Package handler implements the anchorwatch HTTP API.
//
// # Handlers
//
// DetectionHandler serves the committed reconciled set, dashboard stats,
// on-demand refresh and JSON/YAML exports.
//
// WhitelistHandler lists entries and accepts new MACs. Submissions are
// validated and checked for duplicates before anything is written.
//
// IngestHandler accepts RSSI readings posted by anchors and reports the
// latest anchor probe status.
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 201,
// 202). Error responses return JSON with {error, details} structure.
//
// Middleware provides panic recovery, CORS and request logging.
package handler
