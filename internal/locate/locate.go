// Package locate estimates which floor block a device is in from the RSSI
// readings reported by a row of three anchors.
//
// The floor is a 3x3 grid. The anchor with the strongest filtered signal picks
// the column (left, center, right) and the signal level picks the row (front,
// middle, back). Blocks are numbered 1-9 left to right, front to back.
//
// Readings per anchor are smoothed with a sliding median (AnchorFilter) and the
// resulting zone is debounced by majority vote (ZoneStabilizer).
package locate

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// NoSignal marks an anchor without a usable reading
const NoSignal = -999

// Column is the horizontal position of an anchor
type Column string

const (
	ColumnLeft   Column = "left"
	ColumnCenter Column = "center"
	ColumnRight  Column = "right"
)

// Settings tunes filtering and zone thresholds
type Settings struct {
	NoiseFloor     int
	MaxStale       time.Duration
	WindowSize     int
	StabilizeCount int
	ThreshFront    int
	ThreshMiddle   int
	// Offsets are per-column calibration added to filtered readings
	Offsets map[Column]int
}

// DefaultSettings mirrors the tuning used on the deployed anchors
func DefaultSettings() Settings {
	return Settings{
		NoiseFloor:     -95,
		MaxStale:       4 * time.Second,
		WindowSize:     15,
		StabilizeCount: 8,
		ThreshFront:    -55,
		ThreshMiddle:   -60,
		Offsets:        map[Column]int{},
	}
}

// Zone is the estimated location of a device
type Zone struct {
	Block int
	Label string
}

// Unknown is reported until an anchor has a usable reading
var Unknown = Zone{Label: "Unknown"}

var blockGrid = map[string]map[Column]int{
	"front":  {ColumnLeft: 1, ColumnCenter: 2, ColumnRight: 3},
	"middle": {ColumnLeft: 4, ColumnCenter: 5, ColumnRight: 6},
	"back":   {ColumnLeft: 7, ColumnCenter: 8, ColumnRight: 9},
}

// IdentifyBlock maps filtered per-column readings to a block. Columns with
// NoSignal are ignored; ties go to the leftmost column.
func IdentifyBlock(readings map[Column]float64, s Settings) Zone {
	best := float64(NoSignal)
	var col Column
	for _, c := range []Column{ColumnLeft, ColumnCenter, ColumnRight} {
		v, ok := readings[c]
		if !ok || v == NoSignal {
			continue
		}
		adj := v + float64(s.Offsets[c])
		if adj > best {
			best = adj
			col = c
		}
	}

	if col == "" {
		return Unknown
	}

	row := "back"
	switch {
	case best > float64(s.ThreshFront):
		row = "front"
	case best > float64(s.ThreshMiddle):
		row = "middle"
	}

	block := blockGrid[row][col]
	return Zone{Block: block, Label: fmt.Sprintf("Block %d", block)}
}

// AnchorFilter keeps a sliding window of readings per anchor.
type AnchorFilter struct {
	settings Settings
	history  map[string][]int
	lastSeen map[string]time.Time
}

// NewAnchorFilter creates an empty filter
func NewAnchorFilter(s Settings) *AnchorFilter {
	return &AnchorFilter{
		settings: s,
		history:  make(map[string][]int),
		lastSeen: make(map[string]time.Time),
	}
}

// Update records a reading. Readings below the noise floor are dropped.
func (f *AnchorFilter) Update(anchorID string, rssi int, at time.Time) {
	if rssi < f.settings.NoiseFloor {
		return
	}
	h := append(f.history[anchorID], rssi)
	if len(h) > f.settings.WindowSize {
		h = h[len(h)-f.settings.WindowSize:]
	}
	f.history[anchorID] = h
	f.lastSeen[anchorID] = at
}

// Value returns the median of the window, or NoSignal when the anchor has no
// readings or its last reading is older than MaxStale.
func (f *AnchorFilter) Value(anchorID string, now time.Time) float64 {
	h := f.history[anchorID]
	if len(h) == 0 {
		return NoSignal
	}
	if now.Sub(f.lastSeen[anchorID]) > f.settings.MaxStale {
		return NoSignal
	}
	return median(h)
}

// LastSeen returns the most recent reading time across all anchors.
func (f *AnchorFilter) LastSeen() time.Time {
	var latest time.Time
	for _, t := range f.lastSeen {
		if t.After(latest) {
			latest = t
		}
	}
	return latest
}

func median(values []int) float64 {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}

// ZoneStabilizer only switches the displayed zone when a strict majority of
// the last StabilizeCount estimates agree.
type ZoneStabilizer struct {
	size      int
	history   []Zone
	displayed Zone
}

// NewZoneStabilizer creates a stabilizer showing Unknown
func NewZoneStabilizer(size int) *ZoneStabilizer {
	return &ZoneStabilizer{size: size, displayed: Unknown}
}

// Update feeds a new estimate and returns the zone to display.
func (z *ZoneStabilizer) Update(next Zone) Zone {
	z.history = append(z.history, next)
	if len(z.history) > z.size {
		z.history = z.history[len(z.history)-z.size:]
	}

	if len(z.history) == z.size {
		counts := make(map[Zone]int)
		var top Zone
		topCount := 0
		for _, zone := range z.history {
			counts[zone]++
			if counts[zone] > topCount {
				top = zone
				topCount = counts[zone]
			}
		}
		if topCount*2 > z.size {
			z.displayed = top
		}
	}

	if z.displayed == Unknown && len(z.history) > 0 {
		z.displayed = z.history[len(z.history)-1]
	}
	return z.displayed
}

// Displayed returns the current zone without feeding a new estimate.
func (z *ZoneStabilizer) Displayed() Zone {
	return z.displayed
}

// Tracker holds per-device filters. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	settings Settings
	columns  map[string]Column
	devices  map[string]*device
}

type device struct {
	filter     *AnchorFilter
	stabilizer *ZoneStabilizer
}

// NewTracker creates a tracker. columns maps anchor IDs to their column.
func NewTracker(s Settings, columns map[string]Column) *Tracker {
	return &Tracker{
		settings: s,
		columns:  columns,
		devices:  make(map[string]*device),
	}
}

// Observe records a reading for a device and returns the zone that was
// displayed before this reading, followed by the updated zone. Readings below
// the noise floor leave the device's state untouched.
func (t *Tracker) Observe(deviceID, anchorID string, rssi int, at time.Time) (previous, current Zone) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.devices[deviceID]
	if !ok {
		d = &device{
			filter:     NewAnchorFilter(t.settings),
			stabilizer: NewZoneStabilizer(t.settings.StabilizeCount),
		}
		t.devices[deviceID] = d
	}

	previous = d.stabilizer.Displayed()
	if rssi < t.settings.NoiseFloor {
		return previous, previous
	}
	d.filter.Update(anchorID, rssi, at)

	readings := make(map[Column]float64, len(t.columns))
	for id, col := range t.columns {
		readings[col] = d.filter.Value(id, at)
	}
	current = d.stabilizer.Update(IdentifyBlock(readings, t.settings))
	return previous, current
}

// Prune forgets devices with no reading within MaxStale of now.
func (t *Tracker) Prune(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, d := range t.devices {
		if now.Sub(d.filter.LastSeen()) > t.settings.MaxStale {
			delete(t.devices, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked devices.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.devices)
}
