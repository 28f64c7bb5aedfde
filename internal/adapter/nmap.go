package adapter

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"

	"anchorwatch/internal/domain"
)

// AnchorTarget is a fixed receiver to probe
type AnchorTarget struct {
	ID   string
	Host string
}

// scanFunc runs one ping sweep across hosts
type scanFunc func(ctx context.Context, hosts []string, skipDiscovery bool) (*nmap.Run, error)

// NmapAdapter checks anchor liveness with an nmap ping scan
type NmapAdapter struct {
	anchors           []AnchorTarget
	interval          time.Duration
	timeout           time.Duration
	skipHostDiscovery bool
	publisher         EventPublisher
	scan              scanFunc
	mu                sync.Mutex
	running           bool
	lastSeen          map[string]time.Time
	lastScanTime      time.Time
}

// NewNmapAdapter creates a new anchor probe
func NewNmapAdapter(anchors []AnchorTarget, opts ...NmapOption) *NmapAdapter {
	adapter := &NmapAdapter{
		anchors:  anchors,
		interval: time.Minute,
		timeout:  30 * time.Second,
		scan:     runPingScan,
		lastSeen: make(map[string]time.Time),
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// SetEventPublisher sets the event publisher for progress updates
func (n *NmapAdapter) SetEventPublisher(pub EventPublisher) {
	n.publisher = pub
}

func (n *NmapAdapter) publishProgress(eventType string, payload interface{}) {
	if n.publisher != nil {
		n.publisher.PublishAdapterEvent(eventType, payload)
	}
}

// Name returns the adapter identifier
func (n *NmapAdapter) Name() string {
	return "nmap"
}

// Type returns the adapter type
func (n *NmapAdapter) Type() AdapterType {
	return AdapterTypePolling
}

// Interval returns the configured polling interval
func (n *NmapAdapter) Interval() time.Duration {
	return n.interval
}

// Start initializes the adapter
func (n *NmapAdapter) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !isNmapAvailable(ctx) {
		return fmt.Errorf("nmap binary not found in PATH")
	}

	n.running = true
	log.Printf("Nmap adapter started (anchors=%d, timeout=%s)", len(n.anchors), n.timeout)
	return nil
}

// Stop shuts down the adapter
func (n *NmapAdapter) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.running = false
	log.Printf("Nmap adapter stopped")
	return nil
}

// Sync runs a ping scan and returns one status per configured anchor
func (n *NmapAdapter) Sync(ctx context.Context) (*domain.AnchorReport, error) {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return nil, fmt.Errorf("adapter not running")
	}
	n.lastScanTime = time.Now()
	n.mu.Unlock()

	if len(n.anchors) == 0 {
		return domain.NewAnchorReport(), nil
	}

	hosts := make([]string, 0, len(n.anchors))
	for _, a := range n.anchors {
		hosts = append(hosts, a.Host)
	}

	n.publishProgress("anchor-probe-started", map[string]interface{}{
		"total":   len(hosts),
		"message": fmt.Sprintf("Probing %d anchors", len(hosts)),
	})

	scanCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	result, err := n.scan(scanCtx, hosts, n.skipHostDiscovery)
	if err != nil {
		return nil, fmt.Errorf("ping scan failed: %w", err)
	}

	report := n.buildReport(result, time.Now())

	up := 0
	for _, s := range report.Anchors {
		if s.State == domain.AnchorStateUp {
			up++
		}
	}
	n.publishProgress("anchor-probe-complete", map[string]interface{}{
		"total":   len(report.Anchors),
		"up":      up,
		"message": fmt.Sprintf("Anchor probe complete: %d/%d up", up, len(report.Anchors)),
	})

	return report, nil
}

// buildReport maps scan results back onto the configured anchors.
// Anchors absent from the result are reported down.
func (n *NmapAdapter) buildReport(result *nmap.Run, now time.Time) *domain.AnchorReport {
	upHosts := make(map[string]bool)
	if result != nil {
		for _, host := range result.Hosts {
			if host.Status.State != "up" {
				continue
			}
			for _, addr := range host.Addresses {
				upHosts[addr.Addr] = true
			}
			for _, hn := range host.Hostnames {
				upHosts[hn.Name] = true
			}
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	report := domain.NewAnchorReport()
	for _, a := range n.anchors {
		status := domain.AnchorStatus{
			AnchorID:  a.ID,
			Host:      a.Host,
			State:     domain.AnchorStateDown,
			CheckedAt: now,
		}
		if upHosts[a.Host] {
			status.State = domain.AnchorStateUp
			n.lastSeen[a.ID] = now
		}
		if seen, ok := n.lastSeen[a.ID]; ok {
			seen := seen
			status.LastSeen = &seen
		}
		report.Add(status)
	}

	sort.Slice(report.Anchors, func(i, j int) bool {
		return report.Anchors[i].AnchorID < report.Anchors[j].AnchorID
	})
	return report
}

// isNmapAvailable checks if nmap binary exists
func isNmapAvailable(ctx context.Context) bool {
	scanner, err := nmap.NewScanner(
		ctx,
		nmap.WithTargets("localhost"),
		nmap.WithListScan(),
	)
	if err != nil {
		return false
	}

	_, _, err = scanner.Run()
	return err == nil
}

// runPingScan performs host discovery only (-sn) across the anchor hosts
func runPingScan(ctx context.Context, hosts []string, skipDiscovery bool) (*nmap.Run, error) {
	opts := []nmap.Option{
		nmap.WithTargets(hosts...),
		nmap.WithPingScan(),
	}
	if skipDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, err
	}
	if warnings != nil && len(*warnings) > 0 {
		log.Printf("Nmap: warnings: %v", *warnings)
	}
	return result, nil
}
