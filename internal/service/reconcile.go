package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"anchorwatch/internal/domain"
)

// DetectionSource yields the raw detection batch for a cycle
type DetectionSource interface {
	Fetch(ctx context.Context) ([]domain.Detection, error)
}

// WhitelistSource yields the trusted MAC entries for a cycle
type WhitelistSource interface {
	Fetch(ctx context.Context) ([]domain.WhitelistEntry, error)
}

// CycleResult is everything one reconciliation cycle produced. Current
// becomes the prior set of the next cycle once committed.
type CycleResult struct {
	ID             string                     `json:"id"`
	StartedAt      time.Time                  `json:"started_at"`
	FinishedAt     time.Time                  `json:"finished_at"`
	Current        domain.ReconciledSet       `json:"current"`
	Delta          domain.Delta               `json:"delta"`
	Notification   domain.Notification        `json:"notification"`
	RawCount       int                        `json:"raw_count"`
	Excluded       int                        `json:"excluded"`
	WhitelistCount int                        `json:"whitelist_count"`
	Warnings       []string                   `json:"warnings"`
	SourceErrors   []*domain.SourceFetchError `json:"-"`
}

// Reconciler runs the fetch, reduce and diff steps of a cycle. It holds no
// state between cycles.
type Reconciler struct {
	detections DetectionSource
	whitelist  WhitelistSource
	ttl        time.Duration
	now        func() time.Time
	newID      func() string
}

// NewReconciler creates a reconciler. A non-positive ttl uses the default.
func NewReconciler(detections DetectionSource, whitelist WhitelistSource, ttl time.Duration) *Reconciler {
	if ttl <= 0 {
		ttl = domain.DefaultNotificationTTL
	}
	return &Reconciler{
		detections: detections,
		whitelist:  whitelist,
		ttl:        ttl,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Cycle computes the next reconciled set from prior. Source failures are
// absorbed as warnings with an empty result for that source. An error is
// returned only when the context ends mid-cycle or a source misbehaves
// outside its contract; the caller must then keep prior.
func (r *Reconciler) Cycle(ctx context.Context, prior domain.ReconciledSet) (*CycleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cycle not started: %w", err)
	}

	res := &CycleResult{
		ID:        r.newID(),
		StartedAt: r.now(),
		Warnings:  []string{},
	}

	entries, err := r.whitelist.Fetch(ctx)
	if err := r.absorb(res, err); err != nil {
		return nil, err
	}
	raw, err := r.detections.Fetch(ctx)
	if err := r.absorb(res, err); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cycle %s cancelled: %w", res.ID, err)
	}

	index := domain.BuildWhitelistIndex(entries)
	filtered := domain.Exclude(raw, index)
	current := domain.Dedupe(filtered)
	delta := domain.Diff(current, prior)

	res.Current = current
	res.Delta = delta
	res.RawCount = len(raw)
	res.Excluded = len(raw) - len(filtered)
	res.WhitelistCount = index.Len()
	res.FinishedAt = r.now()
	res.Notification = domain.NotificationFor(delta, res.FinishedAt, r.ttl)

	log.Printf("Reconcile: cycle %s raw=%d excluded=%d current=%d new=%d",
		res.ID, res.RawCount, res.Excluded, len(current), len(delta.NewItems))
	return res, nil
}

// absorb records a source failure on res. Anything that is not a
// SourceFetchError is returned to abort the cycle.
func (r *Reconciler) absorb(res *CycleResult, err error) error {
	if err == nil {
		return nil
	}
	var srcErr *domain.SourceFetchError
	if !errors.As(err, &srcErr) {
		return fmt.Errorf("cycle %s: %w", res.ID, err)
	}
	res.SourceErrors = append(res.SourceErrors, srcErr)
	res.Warnings = append(res.Warnings, srcErr.Error())
	return nil
}
