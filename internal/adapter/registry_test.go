package adapter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"anchorwatch/internal/domain"
)

type fakeAdapter struct {
	name     string
	typ      AdapterType
	mu       sync.Mutex
	syncs    int
	startErr error
	syncErr  error
	stopped  bool
}

func (f *fakeAdapter) Name() string                    { return f.name }
func (f *fakeAdapter) Type() AdapterType               { return f.typ }
func (f *fakeAdapter) Start(ctx context.Context) error { return f.startErr }

func (f *fakeAdapter) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeAdapter) Sync(ctx context.Context) (*domain.AnchorReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs++
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	report := domain.NewAnchorReport()
	report.Add(domain.AnchorStatus{AnchorID: "Anchor_1", State: domain.AnchorStateUp})
	return report, nil
}

func (f *fakeAdapter) syncCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncs
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(nil)
	a := &fakeAdapter{name: "probe", typ: AdapterTypeOneShot}

	if err := r.Register(a, AdapterConfig{Enabled: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(a, AdapterConfig{Enabled: true}); err == nil {
		t.Error("expected duplicate registration error")
	}

	infos := r.ListAdapters()
	if len(infos) != 1 || infos[0].Name != "probe" || infos[0].Type != AdapterTypeOneShot {
		t.Errorf("unexpected adapter info: %+v", infos)
	}
}

func TestRegistry_RegisterSetsPublisher(t *testing.T) {
	r := NewRegistry(nil)
	var got []string
	r.SetAdapterEventHandler(func(eventType string, payload interface{}) {
		got = append(got, eventType)
	})

	n := NewNmapAdapter(nil)
	if err := r.Register(n, AdapterConfig{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n.publishProgress("probe-test", nil)

	if len(got) != 1 || got[0] != "probe-test" {
		t.Errorf("expected forwarded event, got %v", got)
	}
}

func TestRegistry_TriggerSync(t *testing.T) {
	var reports []string
	r := NewRegistry(func(ctx context.Context, source string, report *domain.AnchorReport) error {
		reports = append(reports, source)
		return nil
	})

	enabled := &fakeAdapter{name: "enabled", typ: AdapterTypeOneShot}
	disabled := &fakeAdapter{name: "disabled", typ: AdapterTypeOneShot}
	failing := &fakeAdapter{name: "failing", typ: AdapterTypeOneShot, syncErr: errors.New("boom")}
	_ = r.Register(enabled, AdapterConfig{Enabled: true})
	_ = r.Register(disabled, AdapterConfig{Enabled: false})
	_ = r.Register(failing, AdapterConfig{Enabled: true})

	ctx := context.Background()
	if err := r.TriggerSync(ctx, "enabled"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.TriggerSync(ctx, "disabled"); err == nil {
		t.Error("expected error for disabled adapter")
	}
	if err := r.TriggerSync(ctx, "missing"); err == nil {
		t.Error("expected error for unknown adapter")
	}
	if err := r.TriggerSync(ctx, "failing"); err == nil {
		t.Error("expected sync error")
	}
	if len(reports) != 1 || reports[0] != "enabled" {
		t.Errorf("unexpected reports: %v", reports)
	}

	if err := r.TriggerSyncAll(ctx); err == nil {
		t.Error("expected aggregated error from failing adapter")
	}
	if disabled.syncCount() != 0 {
		t.Error("disabled adapter should never sync")
	}
}

func TestRegistry_PollingLoop(t *testing.T) {
	done := make(chan struct{}, 10)
	r := NewRegistry(func(ctx context.Context, source string, report *domain.AnchorReport) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})

	a := &fakeAdapter{name: "poller", typ: AdapterTypePolling}
	_ = r.Register(a, AdapterConfig{Enabled: true, PollInterval: "10ms"})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for polling sync")
		}
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.mu.Lock()
	stopped := a.stopped
	a.mu.Unlock()
	if !stopped {
		t.Error("expected adapter to be stopped")
	}
	if a.syncCount() < 2 {
		t.Errorf("expected at least 2 syncs, got %d", a.syncCount())
	}
}
