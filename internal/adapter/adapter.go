package adapter

import (
	"context"

	"anchorwatch/internal/domain"
)

// AdapterType says whether the registry drives an adapter on a timer.
type AdapterType string

const (
	AdapterTypePolling AdapterType = "polling"
	AdapterTypeOneShot AdapterType = "oneshot" // only synced through Registry.TriggerSync
)

// AdapterConfig is the per-adapter registration setting. PollInterval uses
// time.ParseDuration syntax; an empty or unparsable value falls back to the
// registry default.
type AdapterConfig struct {
	Enabled      bool   `json:"enabled"`
	PollInterval string `json:"poll_interval,omitempty"`
}

// Adapter probes anchors and reports what it saw. Sync must honor ctx
// cancellation; Stop may be called without a prior Start.
type Adapter interface {
	Name() string
	Type() AdapterType
	Start(ctx context.Context) error
	Stop() error
	Sync(ctx context.Context) (*domain.AnchorReport, error)
}

// EventPublisher receives progress events emitted during a long Sync.
type EventPublisher interface {
	PublishAdapterEvent(eventType string, payload interface{})
}

// ProgressAdapter is implemented by adapters that emit progress events.
// The registry injects itself as the publisher on Register.
type ProgressAdapter interface {
	Adapter
	SetEventPublisher(pub EventPublisher)
}
