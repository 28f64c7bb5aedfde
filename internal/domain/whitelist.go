package domain

import (
	"regexp"
	"time"
)

// WhitelistEntry is an operator-approved device.
type WhitelistEntry struct {
	ID        int64     `json:"id,omitempty"`
	MAC       string    `json:"mac"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// macPattern matches the canonical colon-separated form after normalization.
var macPattern = regexp.MustCompile(`^([0-9a-f]{2}:){5}[0-9a-f]{2}$`)

// CanonicalMAC normalizes a submitted MAC and checks it against the
// XX:XX:XX:XX:XX:XX pattern. It returns a *ValidationError wrapping
// ErrEmptyMAC or ErrInvalidMAC when the input is rejected.
func CanonicalMAC(raw string) (string, error) {
	mac := Normalize(raw)
	if mac == "" {
		return "", &ValidationError{MAC: raw, Err: ErrEmptyMAC}
	}
	if !macPattern.MatchString(mac) {
		return "", &ValidationError{MAC: raw, Err: ErrInvalidMAC}
	}
	return mac, nil
}

// WhitelistIndex is a membership set of normalized MAC addresses.
type WhitelistIndex struct {
	macs map[string]struct{}
}

// BuildWhitelistIndex normalizes each entry's MAC and drops empty results.
// The index is meant to be rebuilt every cycle, never reused.
func BuildWhitelistIndex(entries []WhitelistEntry) WhitelistIndex {
	idx := WhitelistIndex{macs: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		if mac := Normalize(e.MAC); mac != "" {
			idx.macs[mac] = struct{}{}
		}
	}
	return idx
}

// Contains reports whether mac, after normalization, is trusted.
// An empty MAC is never trusted.
func (w WhitelistIndex) Contains(mac string) bool {
	n := Normalize(mac)
	if n == "" {
		return false
	}
	_, ok := w.macs[n]
	return ok
}

// Len returns the number of distinct trusted MACs.
func (w WhitelistIndex) Len() int {
	return len(w.macs)
}
