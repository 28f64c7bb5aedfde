package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"anchorwatch/internal/domain"
	"anchorwatch/internal/repository"
)

// Trigger enqueues an on-demand reconciliation cycle
type Trigger interface {
	Trigger(reason string)
}

// Trigger reasons
const (
	ReasonWhitelistInsert = "whitelist_insert"
	ReasonWhitelistSeed   = "whitelist_seed"
)

// ImportResult summarizes a seed import
type ImportResult struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

// WhitelistService validates and stores trusted MACs
type WhitelistService struct {
	store    repository.WhitelistStore
	eventBus *EventBus
	trigger  Trigger
	recorder Recorder
}

// NewWhitelistService creates a whitelist service. trigger may be nil.
func NewWhitelistService(store repository.WhitelistStore, eventBus *EventBus, trigger Trigger) *WhitelistService {
	return &WhitelistService{
		store:    store,
		eventBus: eventBus,
		trigger:  trigger,
		recorder: nopRecorder{},
	}
}

// SetRecorder sets the metrics recorder
func (s *WhitelistService) SetRecorder(r Recorder) {
	s.recorder = recorderOrNop(r)
}

// List returns every whitelist entry
func (s *WhitelistService) List(ctx context.Context) ([]domain.WhitelistEntry, error) {
	entries, err := s.store.ListWhitelist(ctx)
	if err != nil {
		return nil, fmt.Errorf("list whitelist: %w", err)
	}
	if entries == nil {
		entries = []domain.WhitelistEntry{}
	}
	return entries, nil
}

// Check validates raw and reports whether it is already whitelisted
func (s *WhitelistService) Check(ctx context.Context, raw string) (string, bool, error) {
	mac, err := domain.CanonicalMAC(raw)
	if err != nil {
		return "", false, err
	}
	exists, err := s.store.HasWhitelistMAC(ctx, mac)
	if err != nil {
		return mac, false, fmt.Errorf("check whitelist: %w", err)
	}
	return mac, exists, nil
}

// Add validates raw, rejects duplicates and inserts the canonical form. A
// successful insert triggers a reconciliation cycle.
func (s *WhitelistService) Add(ctx context.Context, raw string) (*domain.WhitelistEntry, error) {
	entry, err := s.insert(ctx, raw)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{Type: EventWhitelistAdded, Payload: entry})
	if s.trigger != nil {
		s.trigger.Trigger(ReasonWhitelistInsert)
	}
	return entry, nil
}

// Import adds every MAC in macs through the same validation as Add and
// triggers a single cycle when anything was added.
func (s *WhitelistService) Import(ctx context.Context, macs []string) (ImportResult, error) {
	var res ImportResult
	for _, raw := range macs {
		entry, err := s.insert(ctx, raw)
		switch {
		case err == nil:
			res.Added++
			s.eventBus.Publish(Event{Type: EventWhitelistAdded, Payload: entry})
		case errors.Is(err, domain.ErrDuplicateMAC):
			res.Duplicates++
		case domain.IsValidation(err):
			res.Invalid++
			log.Printf("Whitelist: seed entry rejected: %v", err)
		default:
			return res, err
		}
	}

	if res.Added > 0 && s.trigger != nil {
		s.trigger.Trigger(ReasonWhitelistSeed)
	}
	return res, nil
}

func (s *WhitelistService) insert(ctx context.Context, raw string) (*domain.WhitelistEntry, error) {
	mac, err := domain.CanonicalMAC(raw)
	if err != nil {
		s.recorder.WhitelistSubmission("invalid")
		return nil, err
	}

	exists, err := s.store.HasWhitelistMAC(ctx, mac)
	if err != nil {
		s.recorder.WhitelistSubmission("error")
		return nil, fmt.Errorf("check whitelist: %w", err)
	}
	if exists {
		s.recorder.WhitelistSubmission("duplicate")
		return nil, &domain.ValidationError{MAC: mac, Err: domain.ErrDuplicateMAC}
	}

	entry := &domain.WhitelistEntry{MAC: mac}
	if err := s.store.InsertWhitelist(ctx, entry); err != nil {
		s.recorder.WhitelistSubmission("error")
		return nil, fmt.Errorf("insert whitelist: %w", err)
	}

	s.recorder.WhitelistSubmission("added")
	log.Printf("Whitelist: added %s", mac)
	return entry, nil
}
