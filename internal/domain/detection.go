package domain

import (
	"encoding/json"
	"strings"
)

// Detection is one sighting of a wireless device by an anchor in a poll cycle.
// Empty MAC or SSID means the store reported NULL for that column.
type Detection struct {
	ID       int64  `json:"id,omitempty"`
	AnchorID string `json:"anchor"`
	SSID     string `json:"ssid"`
	MAC      string `json:"mac"`
	RSSI     int    `json:"rssi"`
	Block    int    `json:"block"`
}

// ReconciledSet is the deduplicated, trust-filtered detection set of one cycle.
// It holds at most one Detection per identity key.
type ReconciledSet []Detection

// Normalize canonicalizes an identity field for comparison. Strings (and
// non-nil string pointers) are trimmed and lower-cased; anything else yields "".
func Normalize(v any) string {
	switch s := v.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(s))
	case *string:
		if s == nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(*s))
	default:
		return ""
	}
}

// Identity returns the logical identity of a detection: the normalized SSID,
// else the normalized MAC, else FallbackKey. Two detections sharing a
// non-empty SSID are the same identity regardless of MAC.
func Identity(d Detection) string {
	if ssid := Normalize(d.SSID); ssid != "" {
		return ssid
	}
	if mac := Normalize(d.MAC); mac != "" {
		return mac
	}
	return FallbackKey(d)
}

// fallbackRecord fixes the field order of the serialized fallback key.
type fallbackRecord struct {
	MAC      string `json:"mac"`
	AnchorID string `json:"anchor"`
	SSID     string `json:"ssid"`
	RSSI     int    `json:"rssi"`
	Block    int    `json:"block"`
}

// FallbackKey serializes the observable fields of a detection. It is used as the
// identity of records that carry neither SSID nor MAC, so byte-identical
// observations collapse while distinct ones stay apart. The row id is not part
// of the key.
func FallbackKey(d Detection) string {
	data, err := json.Marshal(fallbackRecord{
		MAC:      d.MAC,
		AnchorID: d.AnchorID,
		SSID:     d.SSID,
		RSSI:     d.RSSI,
		Block:    d.Block,
	})
	if err != nil {
		// Marshal of plain strings and ints cannot fail
		return d.AnchorID
	}
	return string(data)
}

// Anchors returns the number of distinct anchors in the set.
func (s ReconciledSet) Anchors() int {
	seen := make(map[string]struct{}, len(s))
	for _, d := range s {
		seen[d.AnchorID] = struct{}{}
	}
	return len(seen)
}

// Clone returns a copy that does not share the backing array.
func (s ReconciledSet) Clone() ReconciledSet {
	if s == nil {
		return nil
	}
	out := make(ReconciledSet, len(s))
	copy(out, s)
	return out
}
