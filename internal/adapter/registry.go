package adapter

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"anchorwatch/internal/domain"
)

// ReportFunc is called when an adapter produces an anchor report
type ReportFunc func(ctx context.Context, source string, report *domain.AnchorReport) error

// AdapterEventFunc is called when adapters publish progress events
type AdapterEventFunc func(eventType string, payload interface{})

// Registry manages all registered adapters and their lifecycle
type Registry struct {
	mu           sync.RWMutex
	adapters     map[string]Adapter
	configs      map[string]AdapterConfig
	report       ReportFunc
	adapterEvent AdapterEventFunc
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewRegistry creates a new adapter registry
func NewRegistry(report ReportFunc) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		configs:  make(map[string]AdapterConfig),
		report:   report,
	}
}

// SetAdapterEventHandler sets the handler for adapter events
func (r *Registry) SetAdapterEventHandler(handler AdapterEventFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapterEvent = handler
}

// PublishAdapterEvent implements EventPublisher interface
func (r *Registry) PublishAdapterEvent(eventType string, payload interface{}) {
	r.mu.RLock()
	handler := r.adapterEvent
	r.mu.RUnlock()

	if handler != nil {
		handler(eventType, payload)
	}
}

// Register adds an adapter to the registry
func (r *Registry) Register(adapter Adapter, config AdapterConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := adapter.Name()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter %s already registered", name)
	}

	if progressAdapter, ok := adapter.(ProgressAdapter); ok {
		progressAdapter.SetEventPublisher(r)
	}

	r.adapters[name] = adapter
	r.configs[name] = config
	log.Printf("Registered adapter: %s (type=%s, enabled=%v)", name, adapter.Type(), config.Enabled)

	return nil
}

// Start initializes all enabled adapters and begins their sync cycles
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ctx, r.cancel = context.WithCancel(ctx)

	for name, adapter := range r.adapters {
		config := r.configs[name]
		if !config.Enabled {
			log.Printf("Adapter %s is disabled, skipping", name)
			continue
		}

		if err := adapter.Start(r.ctx); err != nil {
			log.Printf("Failed to start adapter %s: %v", name, err)
			continue
		}

		if adapter.Type() == AdapterTypePolling {
			r.startPollingLoop(name, adapter, config)
		}
	}

	return nil
}

// Stop gracefully shuts down all adapters
func (r *Registry) Stop() error {
	r.mu.RLock()
	cancel := r.cancel
	r.mu.RUnlock()

	if cancel != nil {
		cancel()
	}

	// Polling loops take the read lock in runSync; wait outside the write lock
	r.wg.Wait()

	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, adapter := range r.adapters {
		if err := adapter.Stop(); err != nil {
			log.Printf("Error stopping adapter %s: %v", name, err)
		}
	}

	return nil
}

// TriggerSync manually triggers a sync for a specific adapter
func (r *Registry) TriggerSync(ctx context.Context, name string) error {
	r.mu.RLock()
	adapter, exists := r.adapters[name]
	config := r.configs[name]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("adapter %s not found", name)
	}

	if !config.Enabled {
		return fmt.Errorf("adapter %s is disabled", name)
	}

	return r.runSync(ctx, name, adapter)
}

// TriggerSyncAll manually triggers sync for all enabled adapters
func (r *Registry) TriggerSyncAll(ctx context.Context) error {
	r.mu.RLock()
	targets := make(map[string]Adapter, len(r.adapters))
	for name, adapter := range r.adapters {
		if r.configs[name].Enabled {
			targets[name] = adapter
		}
	}
	r.mu.RUnlock()

	var errs []error
	for name, adapter := range targets {
		if err := r.runSync(ctx, name, adapter); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("sync errors: %v", errs)
	}
	return nil
}

// ListAdapters returns information about registered adapters, sorted by name
func (r *Registry) ListAdapters() []AdapterInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]AdapterInfo, 0, len(r.adapters))
	for name, adapter := range r.adapters {
		config := r.configs[name]
		infos = append(infos, AdapterInfo{
			Name:         name,
			Type:         adapter.Type(),
			Enabled:      config.Enabled,
			PollInterval: config.PollInterval,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// AdapterInfo provides read-only information about an adapter
type AdapterInfo struct {
	Name         string      `json:"name"`
	Type         AdapterType `json:"type"`
	Enabled      bool        `json:"enabled"`
	PollInterval string      `json:"poll_interval,omitempty"`
}

// startPollingLoop starts a goroutine that polls the adapter on schedule.
// Caller holds r.mu.
func (r *Registry) startPollingLoop(name string, adapter Adapter, config AdapterConfig) {
	interval, err := time.ParseDuration(config.PollInterval)
	if err != nil || interval <= 0 {
		log.Printf("Invalid poll interval for %s: %q, using 1m default", name, config.PollInterval)
		interval = time.Minute
	}

	ctx := r.ctx
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if err := r.runSync(ctx, name, adapter); err != nil {
			log.Printf("Initial sync failed for %s: %v", name, err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Printf("Stopping polling loop for %s", name)
				return
			case <-ticker.C:
				if err := r.runSync(ctx, name, adapter); err != nil {
					log.Printf("Sync failed for %s: %v", name, err)
				}
			}
		}
	}()

	log.Printf("Started polling loop for %s (interval=%s)", name, interval)
}

// runSync executes a sync operation and hands the report on
func (r *Registry) runSync(ctx context.Context, name string, adapter Adapter) error {
	report, err := adapter.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if report == nil || len(report.Anchors) == 0 {
		log.Printf("Adapter %s returned empty report", name)
		return nil
	}

	if r.report != nil {
		if err := r.report(ctx, name, report); err != nil {
			return fmt.Errorf("report failed: %w", err)
		}
	}

	return nil
}
