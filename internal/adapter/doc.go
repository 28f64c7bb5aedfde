// Package adapter holds the edges of the reconciliation pipeline that talk to
// the outside world.
//
// # Fetchers
//
// DetectionFetcher and WhitelistFetcher read from the repository. They never
// abort a cycle: a failed read returns an empty slice together with a
// *domain.SourceFetchError so the caller can surface it and carry on.
//
// # Anchor Probe
//
// NmapAdapter runs an nmap ping scan (-sn) across the configured anchor hosts
// and reports each anchor as up or down, remembering when it was last seen.
//
// # Adapter Registry
//
// Registry manages adapter lifecycle. Polling adapters get a goroutine that
// syncs once on start and then on every tick until the registry is stopped.
// Reports are handed to the ReportFunc given to NewRegistry, and progress
// events are forwarded to the handler set with SetAdapterEventHandler.
package adapter
