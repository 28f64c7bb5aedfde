package adapter

import (
	"context"
	"log"

	"anchorwatch/internal/domain"
	"anchorwatch/internal/repository"
)

// DetectionFetcher reads a bounded batch of raw detections from the store.
// It never fails the pipeline: errors come back as an empty batch plus a
// *domain.SourceFetchError for the caller to report.
type DetectionFetcher struct {
	reader    repository.DetectionReader
	batchSize int
}

// NewDetectionFetcher creates a fetcher reading at most batchSize rows per call
func NewDetectionFetcher(reader repository.DetectionReader, batchSize int) *DetectionFetcher {
	if batchSize <= 0 {
		batchSize = repository.DefaultBatchSize
	}
	return &DetectionFetcher{reader: reader, batchSize: batchSize}
}

// BatchSize returns the per-call row bound
func (f *DetectionFetcher) BatchSize() int {
	return f.batchSize
}

// Fetch returns the most recent bounded slice of detections
func (f *DetectionFetcher) Fetch(ctx context.Context) ([]domain.Detection, error) {
	rows, err := f.reader.ListDetections(ctx, f.batchSize)
	if err != nil {
		log.Printf("DetectionFetcher: fetch failed: %v", err)
		return []domain.Detection{}, &domain.SourceFetchError{Source: domain.SourceDetections, Err: err}
	}
	if len(rows) > f.batchSize {
		rows = rows[:f.batchSize]
	}
	return rows, nil
}

// WhitelistFetcher reads every whitelist entry with the same fail-soft contract
type WhitelistFetcher struct {
	store repository.WhitelistStore
}

// NewWhitelistFetcher creates a whitelist fetcher
func NewWhitelistFetcher(store repository.WhitelistStore) *WhitelistFetcher {
	return &WhitelistFetcher{store: store}
}

// Fetch returns all whitelist entries
func (f *WhitelistFetcher) Fetch(ctx context.Context) ([]domain.WhitelistEntry, error) {
	entries, err := f.store.ListWhitelist(ctx)
	if err != nil {
		log.Printf("WhitelistFetcher: fetch failed: %v", err)
		return []domain.WhitelistEntry{}, &domain.SourceFetchError{Source: domain.SourceWhitelist, Err: err}
	}
	if entries == nil {
		entries = []domain.WhitelistEntry{}
	}
	return entries, nil
}
