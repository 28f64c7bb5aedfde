package service

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"anchorwatch/internal/domain"
	"anchorwatch/internal/repository/sqlite"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

// stubDetections is a DetectionSource with scripted results
type stubDetections struct {
	mu    sync.Mutex
	rows  []domain.Detection
	err   error
	panic bool
	hook  func()
}

func (s *stubDetections) Fetch(ctx context.Context) ([]domain.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hook != nil {
		s.hook()
	}
	if s.panic {
		panic("driver exploded")
	}
	if s.err != nil {
		return []domain.Detection{}, s.err
	}
	out := make([]domain.Detection, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *stubDetections) set(rows ...domain.Detection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
}

// stubWhitelist is a WhitelistSource with scripted results
type stubWhitelist struct {
	entries []domain.WhitelistEntry
	err     error
}

func (s *stubWhitelist) Fetch(ctx context.Context) ([]domain.WhitelistEntry, error) {
	if s.err != nil {
		return []domain.WhitelistEntry{}, s.err
	}
	return s.entries, nil
}

func det(id int64, anchor, ssid, mac string, rssi int) domain.Detection {
	return domain.Detection{ID: id, AnchorID: anchor, SSID: ssid, MAC: mac, RSSI: rssi}
}

// recordingTrigger captures trigger reasons
type recordingTrigger struct {
	mu      sync.Mutex
	reasons []string
}

func (r *recordingTrigger) Trigger(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

// countingRecorder records calls for assertions
type countingRecorder struct {
	mu           sync.Mutex
	cycles       map[string]int
	sourceErrors map[string]int
	whitelist    map[string]int
	ingest       map[string]int
	archive      map[string]int
	anchorsUp    int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		cycles:       map[string]int{},
		sourceErrors: map[string]int{},
		whitelist:    map[string]int{},
		ingest:       map[string]int{},
		archive:      map[string]int{},
	}
}

func (c *countingRecorder) ObserveCycle(outcome string, _ time.Duration, _, _ int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cycles[outcome]++
}

func (c *countingRecorder) SourceError(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sourceErrors[source]++
}

func (c *countingRecorder) WhitelistSubmission(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.whitelist[result]++
}

func (c *countingRecorder) IngestReading(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ingest[result]++
}

func (c *countingRecorder) AnchorsUp(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchorsUp = n
}

func (c *countingRecorder) ArchiveWrite(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.archive[outcome]++
}

// drain collects events already buffered on ch
func drain(ch chan Event) []Event {
	var events []Event
	for {
		select {
		case e := <-ch:
			events = append(events, e)
		default:
			return events
		}
	}
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

// ============================================================================
// EventBus Tests
// ============================================================================

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	a := make(chan Event, 1)
	b := make(chan Event, 1)
	bus.Subscribe(a)
	bus.Subscribe(b)

	bus.Publish(Event{Type: EventNotification})
	// b is full; second publish must not block
	bus.Publish(Event{Type: EventWhitelistAdded})

	assertEqual(t, EventNotification, (<-a).Type)
	assertEqual(t, EventNotification, (<-b).Type)

	bus.Unsubscribe(b)
	bus.Publish(Event{Type: EventSourceError})
	assertEqual(t, EventSourceError, (<-a).Type)
	assertEqual(t, 0, len(b))
}

func TestEventBusNilSafe(t *testing.T) {
	var bus *EventBus
	bus.Publish(Event{Type: EventNotification})
}
