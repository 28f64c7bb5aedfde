package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"anchorwatch/internal/codec"
	"anchorwatch/internal/domain"
	"anchorwatch/internal/metrics"
)

// SnapshotArchiver stores the export of a cycle that found new devices
type SnapshotArchiver interface {
	Archive(ctx context.Context, cycleID string, at time.Time, body []byte) (string, error)
}

// Status is the dashboard summary
type Status struct {
	TotalDevices   int                  `json:"total_devices"`
	Anchors        int                  `json:"anchors"`
	WhitelistCount int                  `json:"whitelist_count"`
	Loading        bool                 `json:"loading"`
	Cycles         int                  `json:"cycles"`
	LastCycleID    string               `json:"last_cycle_id,omitempty"`
	LastCycleAt    *time.Time           `json:"last_cycle_at,omitempty"`
	Notification   *domain.Notification `json:"notification,omitempty"`
	Warnings       []string             `json:"warnings"`
}

// notificationPayload is the SSE shape of a notification
type notificationPayload struct {
	Kind           domain.NotificationKind `json:"kind"`
	Count          int                     `json:"count"`
	Message        string                  `json:"message"`
	DismissAfterMS int64                   `json:"dismiss_after_ms"`
}

// MonitorOption configures a Monitor
type MonitorOption func(*Monitor)

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) MonitorOption {
	return func(m *Monitor) {
		m.recorder = recorderOrNop(r)
	}
}

// WithArchiver enables snapshot archiving for cycles with new devices
func WithArchiver(a SnapshotArchiver) MonitorOption {
	return func(m *Monitor) {
		m.archiver = a
	}
}

// WithNotificationTTL overrides how long failure notifications stay active
func WithNotificationTTL(ttl time.Duration) MonitorOption {
	return func(m *Monitor) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// Monitor is the single writer of cycle state. It runs cycles through the
// Reconciler, commits the result as the next prior set and fans the outcome
// out to events, metrics and the archive.
type Monitor struct {
	reconciler *Reconciler
	eventBus   *EventBus
	recorder   Recorder
	archiver   SnapshotArchiver
	exporter   codec.Exporter
	ttl        time.Duration
	now        func() time.Time

	// runMu serializes RunCycle so commits follow completion order
	runMu sync.Mutex

	mu             sync.RWMutex
	prior          domain.ReconciledSet
	snapshot       *domain.Snapshot
	loading        bool
	cycles         int
	lastCycleAt    time.Time
	notification   domain.Notification
	warnings       []string
	whitelistCount int
}

// NewMonitor creates a monitor with an empty prior set
func NewMonitor(reconciler *Reconciler, eventBus *EventBus, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		reconciler: reconciler,
		eventBus:   eventBus,
		recorder:   nopRecorder{},
		exporter:   codec.NewJSONCodec(),
		ttl:        domain.DefaultNotificationTTL,
		now:        time.Now,
		prior:      domain.ReconciledSet{},
		snapshot:   domain.NewSnapshot("", time.Time{}, nil),
		warnings:   []string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunCycle runs one cycle and commits it. On error or panic the prior set is
// kept and a failure notification is raised.
func (m *Monitor) RunCycle(ctx context.Context, reason string) (res *CycleResult, err error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	start := m.now()
	m.setLoading(true)
	defer m.setLoading(false)

	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = fmt.Errorf("cycle panic: %v", rec)
			m.fail(start, err)
		}
	}()

	m.mu.RLock()
	prior := m.prior.Clone()
	m.mu.RUnlock()

	log.Printf("Monitor: running cycle (reason=%s)", reason)
	res, err = m.reconciler.Cycle(ctx, prior)
	if err != nil {
		m.fail(start, err)
		return nil, err
	}

	m.commit(res)
	m.recorder.ObserveCycle(metrics.OutcomeOK, m.now().Sub(start), len(res.Current), len(res.Delta.NewItems))
	m.publish(res)

	if res.Delta.IsNew && m.archiver != nil {
		m.archive(ctx, res)
	}

	return res, nil
}

func (m *Monitor) commit(res *CycleResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prior = res.Current.Clone()
	m.snapshot = domain.NewSnapshot(res.ID, res.FinishedAt, res.Current)
	m.cycles++
	m.lastCycleAt = res.FinishedAt
	m.notification = res.Notification
	m.warnings = append([]string{}, res.Warnings...)
	if !hasSource(res.SourceErrors, domain.SourceWhitelist) {
		m.whitelistCount = res.WhitelistCount
	}
}

func hasSource(errs []*domain.SourceFetchError, source string) bool {
	for _, e := range errs {
		if e.Source == source {
			return true
		}
	}
	return false
}

func (m *Monitor) publish(res *CycleResult) {
	for _, srcErr := range res.SourceErrors {
		log.Printf("Monitor: source %s failed: %v", srcErr.Source, srcErr.Err)
		m.recorder.SourceError(srcErr.Source)
		m.eventBus.Publish(Event{
			Type: EventSourceError,
			Payload: map[string]string{
				"cycle_id": res.ID,
				"source":   srcErr.Source,
				"error":    srcErr.Err.Error(),
			},
		})
	}

	m.eventBus.Publish(Event{
		Type: EventDetectionsUpdated,
		Payload: map[string]interface{}{
			"cycle_id":  res.ID,
			"count":     len(res.Current),
			"is_new":    res.Delta.IsNew,
			"new_items": res.Delta.NewItems,
		},
	})
	m.publishNotification(res.Notification)
}

func (m *Monitor) publishNotification(n domain.Notification) {
	m.eventBus.Publish(Event{
		Type: EventNotification,
		Payload: notificationPayload{
			Kind:           n.Kind,
			Count:          n.Count,
			Message:        n.Message,
			DismissAfterMS: n.ExpiresAt.Sub(n.CreatedAt).Milliseconds(),
		},
	})
}

// fail records an aborted cycle. Cycle state other than the notification is
// left untouched.
func (m *Monitor) fail(start time.Time, err error) {
	log.Printf("Monitor: cycle failed: %v", err)
	now := m.now()
	n := domain.FailureNotification(now, m.ttl)

	m.mu.Lock()
	m.notification = n
	m.mu.Unlock()

	m.recorder.ObserveCycle(metrics.OutcomeFailure, now.Sub(start), 0, 0)
	m.publishNotification(n)
}

func (m *Monitor) archive(ctx context.Context, res *CycleResult) {
	var buf bytes.Buffer
	snapshot := domain.NewSnapshot(res.ID, res.FinishedAt, res.Current)
	if err := m.exporter.Export(snapshot, &buf); err != nil {
		log.Printf("Monitor: encode snapshot %s: %v", res.ID, err)
		m.recorder.ArchiveWrite(metrics.OutcomeFailure)
		return
	}

	archiveCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	key, err := m.archiver.Archive(archiveCtx, res.ID, res.FinishedAt, buf.Bytes())
	if err != nil {
		log.Printf("Monitor: archive snapshot %s: %v", res.ID, err)
		m.recorder.ArchiveWrite(metrics.OutcomeFailure)
		return
	}
	m.recorder.ArchiveWrite(metrics.OutcomeOK)
	log.Printf("Monitor: archived snapshot %s to %s", res.ID, key)
}

func (m *Monitor) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}

// Snapshot returns a copy of the committed reconciled set
func (m *Monitor) Snapshot() *domain.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.NewSnapshot(m.snapshot.CycleID, m.snapshot.GeneratedAt, m.snapshot.Detections)
}

// Status returns the dashboard summary. Only an unexpired notification is
// included.
func (m *Monitor) Status() Status {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{
		TotalDevices:   len(m.snapshot.Detections),
		Anchors:        m.snapshot.Detections.Anchors(),
		WhitelistCount: m.whitelistCount,
		Loading:        m.loading,
		Cycles:         m.cycles,
		LastCycleID:    m.snapshot.CycleID,
		Warnings:       append([]string{}, m.warnings...),
	}
	if !m.lastCycleAt.IsZero() {
		at := m.lastCycleAt
		st.LastCycleAt = &at
	}
	if m.notification.Active(now) {
		n := m.notification
		st.Notification = &n
	}
	return st
}
