package service

import (
	"context"
	"sort"
	"sync"

	"anchorwatch/internal/domain"
)

// AnchorService keeps the latest probe status per anchor
type AnchorService struct {
	mu       sync.RWMutex
	statuses map[string]domain.AnchorStatus
	eventBus *EventBus
	recorder Recorder
}

// NewAnchorService seeds every configured anchor as unknown
func NewAnchorService(anchors map[string]string, eventBus *EventBus) *AnchorService {
	statuses := make(map[string]domain.AnchorStatus, len(anchors))
	for id, host := range anchors {
		statuses[id] = domain.AnchorStatus{AnchorID: id, Host: host, State: domain.AnchorStateUnknown}
	}
	return &AnchorService{
		statuses: statuses,
		eventBus: eventBus,
		recorder: nopRecorder{},
	}
}

// SetRecorder sets the metrics recorder
func (s *AnchorService) SetRecorder(r Recorder) {
	s.recorder = recorderOrNop(r)
}

// HandleReport merges a probe report. It matches adapter.ReportFunc.
func (s *AnchorService) HandleReport(ctx context.Context, source string, report *domain.AnchorReport) error {
	var changed []domain.AnchorStatus

	s.mu.Lock()
	for _, st := range report.Anchors {
		old, ok := s.statuses[st.AnchorID]
		if !ok || old.State != st.State {
			changed = append(changed, st)
		}
		s.statuses[st.AnchorID] = st
	}
	up := 0
	for _, st := range s.statuses {
		if st.State == domain.AnchorStateUp {
			up++
		}
	}
	s.mu.Unlock()

	s.recorder.AnchorsUp(up)
	for _, st := range changed {
		s.eventBus.Publish(Event{Type: EventAnchorStatus, Payload: st})
	}
	return nil
}

// List returns statuses sorted by anchor id
func (s *AnchorService) List() []domain.AnchorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AnchorStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AnchorID < out[j].AnchorID })
	return out
}
