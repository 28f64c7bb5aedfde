package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"anchorwatch/internal/domain"
	"anchorwatch/internal/locate"
	"anchorwatch/internal/repository"
)

// Ingest rejections
var (
	ErrMissingDevice = errors.New("reading needs a mac or ssid")
	ErrMissingAnchor = errors.New("reading needs an anchor id")
	ErrNotTargeted   = errors.New("device is not a tracked target")
)

// Reading is one RSSI sample reported by an anchor
type Reading struct {
	MAC      string
	SSID     string
	AnchorID string
	RSSI     int
}

// IngestResult is the stored detection with its zone estimate
type IngestResult struct {
	Detection domain.Detection `json:"detection"`
	Zone      string           `json:"zone"`
	Changed   bool             `json:"changed"`
}

// IngestService turns anchor readings into detection rows
type IngestService struct {
	writer   repository.DetectionWriter
	tracker  *locate.Tracker
	targets  map[string]struct{}
	eventBus *EventBus
	recorder Recorder
	now      func() time.Time
}

// NewIngestService creates an ingest service. When targets is non-empty only
// those MACs are stored.
func NewIngestService(writer repository.DetectionWriter, tracker *locate.Tracker, targets []string, eventBus *EventBus) *IngestService {
	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if mac := domain.Normalize(t); mac != "" {
			set[mac] = struct{}{}
		}
	}
	return &IngestService{
		writer:   writer,
		tracker:  tracker,
		targets:  set,
		eventBus: eventBus,
		recorder: nopRecorder{},
		now:      time.Now,
	}
}

// SetRecorder sets the metrics recorder
func (s *IngestService) SetRecorder(r Recorder) {
	s.recorder = recorderOrNop(r)
}

// Ingest filters and locates a reading, then writes it to the detection store
func (s *IngestService) Ingest(ctx context.Context, r Reading) (*IngestResult, error) {
	mac := strings.TrimSpace(r.MAC)
	ssid := strings.TrimSpace(r.SSID)
	anchor := strings.TrimSpace(r.AnchorID)

	deviceID := domain.Normalize(mac)
	if deviceID == "" {
		deviceID = domain.Normalize(ssid)
	}
	if deviceID == "" {
		s.recorder.IngestReading("invalid")
		return nil, ErrMissingDevice
	}
	if anchor == "" {
		s.recorder.IngestReading("invalid")
		return nil, ErrMissingAnchor
	}

	if len(s.targets) > 0 {
		if _, ok := s.targets[domain.Normalize(mac)]; !ok {
			s.recorder.IngestReading("ignored")
			return nil, ErrNotTargeted
		}
	}
	if r.RSSI > 0 {
		log.Printf("Ingest: positive RSSI %d from %s for %s", r.RSSI, anchor, deviceID)
	}

	previous, current := s.tracker.Observe(deviceID, anchor, r.RSSI, s.now())

	d := domain.Detection{
		AnchorID: anchor,
		SSID:     ssid,
		MAC:      mac,
		RSSI:     r.RSSI,
		Block:    current.Block,
	}
	if err := s.writer.InsertDetection(ctx, &d); err != nil {
		s.recorder.IngestReading("error")
		return nil, fmt.Errorf("store detection: %w", err)
	}
	s.recorder.IngestReading("stored")

	changed := previous != current
	if changed {
		log.Printf("Ingest: %s moved %s -> %s", deviceID, previous.Label, current.Label)
	}
	return &IngestResult{Detection: d, Zone: current.Label, Changed: changed}, nil
}

// Prune drops tracking state for devices that stopped reporting
func (s *IngestService) Prune() int {
	return s.tracker.Prune(s.now())
}
