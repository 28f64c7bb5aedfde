package domain

import "time"

// Snapshot is the committed view after a cycle: the reconciled set and the
// cycle that produced it.
type Snapshot struct {
	CycleID     string        `json:"cycle_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Detections  ReconciledSet `json:"detections"`
}

// NewSnapshot copies set so later cycles cannot mutate the snapshot
func NewSnapshot(cycleID string, at time.Time, set ReconciledSet) *Snapshot {
	detections := set.Clone()
	if detections == nil {
		detections = ReconciledSet{}
	}
	return &Snapshot{
		CycleID:     cycleID,
		GeneratedAt: at,
		Detections:  detections,
	}
}
