package domain

import "time"

// AnchorState is the liveness of an anchor as seen by the probe
type AnchorState string

const (
	AnchorStateUnknown AnchorState = "unknown"
	AnchorStateUp      AnchorState = "up"
	AnchorStateDown    AnchorState = "down"
)

// AnchorStatus is the last probe result for one anchor
type AnchorStatus struct {
	AnchorID  string      `json:"anchor_id"`
	Host      string      `json:"host"`
	State     AnchorState `json:"state"`
	LastSeen  *time.Time  `json:"last_seen,omitempty"`
	CheckedAt time.Time   `json:"checked_at"`
}

// AnchorReport is the batch of anchor statuses produced by one probe pass
type AnchorReport struct {
	Anchors []AnchorStatus `json:"anchors"`
}

// NewAnchorReport creates an empty report
func NewAnchorReport() *AnchorReport {
	return &AnchorReport{
		Anchors: make([]AnchorStatus, 0),
	}
}

// Add appends a status to the report
func (r *AnchorReport) Add(status AnchorStatus) {
	r.Anchors = append(r.Anchors, status)
}
