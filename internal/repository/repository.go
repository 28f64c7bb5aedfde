package repository

import (
	"context"

	"anchorwatch/internal/domain"
)

// DefaultBatchSize bounds how many detection rows one poll reads
const DefaultBatchSize = 50

// DetectionReader returns the most recent bounded slice of detection rows.
// No ordering is guaranteed beyond that.
type DetectionReader interface {
	ListDetections(ctx context.Context, limit int) ([]domain.Detection, error)
}

// DetectionWriter stores detections reported by anchors
type DetectionWriter interface {
	InsertDetection(ctx context.Context, d *domain.Detection) error
}

// WhitelistStore reads and extends the operator whitelist
type WhitelistStore interface {
	ListWhitelist(ctx context.Context) ([]domain.WhitelistEntry, error)
	// HasWhitelistMAC checks for an exact match on the stored mac column
	HasWhitelistMAC(ctx context.Context, mac string) (bool, error)
	InsertWhitelist(ctx context.Context, entry *domain.WhitelistEntry) error
}

// Repository is implemented by every backing store
type Repository interface {
	DetectionReader
	DetectionWriter
	WhitelistStore

	// Close releases resources
	Close() error
}
