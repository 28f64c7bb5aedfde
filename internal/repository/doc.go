// Package repository defines the data access interfaces for anchorwatch.
//
// Detections and whitelist entries live in an external row store. The
// reconciliation engine only reads detections and reads/extends the whitelist;
// detection rows are written by the ingest endpoint when anchorwatch itself
// receives anchor reports.
//
// # Implementations
//
// The postgres subpackage talks to the hosted Supabase database through pgx.
// Table names follow the deployed schema: "espData" for detections and
// whitelist for trusted MACs.
//
// The sqlite subpackage provides the same schema in a local SQLite file for
// standalone deployments and tests. It migrates its schema on startup.
package repository
