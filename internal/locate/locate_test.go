package locate

import (
	"testing"
	"time"
)

func TestIdentifyBlock(t *testing.T) {
	s := DefaultSettings()

	tests := []struct {
		name     string
		readings map[Column]float64
		want     int
	}{
		{"strong left is front left", map[Column]float64{ColumnLeft: -40, ColumnCenter: -90, ColumnRight: -90}, 1},
		{"medium center is middle center", map[Column]float64{ColumnLeft: -90, ColumnCenter: -58, ColumnRight: -90}, 5},
		{"weak right is back right", map[Column]float64{ColumnLeft: -90, ColumnCenter: -90, ColumnRight: -80}, 9},
		{"missing anchors are ignored", map[Column]float64{ColumnLeft: NoSignal, ColumnCenter: -50}, 2},
		{"threshold is exclusive", map[Column]float64{ColumnRight: -55}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IdentifyBlock(tt.readings, s)
			if got.Block != tt.want {
				t.Errorf("expected block %d, got %d (%s)", tt.want, got.Block, got.Label)
			}
		})
	}

	t.Run("no signal is unknown", func(t *testing.T) {
		got := IdentifyBlock(map[Column]float64{ColumnLeft: NoSignal}, s)
		if got != Unknown {
			t.Errorf("expected Unknown, got %+v", got)
		}
	})
}

func TestIdentifyBlockOffsets(t *testing.T) {
	s := DefaultSettings()
	s.Offsets = map[Column]int{ColumnLeft: 20}

	tests := []struct {
		name     string
		readings map[Column]float64
		want     int
	}{
		// Raw center is stronger but the left calibration wins: -70+20 = -50
		{"offset crosses front", map[Column]float64{ColumnLeft: -70, ColumnCenter: -60}, 1},
		// -75+20 = -55 is not above the front threshold
		{"front threshold is exclusive", map[Column]float64{ColumnLeft: -75, ColumnCenter: -60}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IdentifyBlock(tt.readings, s); got.Block != tt.want {
				t.Errorf("expected block %d, got %d", tt.want, got.Block)
			}
		})
	}
}

func TestAnchorFilter(t *testing.T) {
	s := DefaultSettings()
	s.WindowSize = 3
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("median of window", func(t *testing.T) {
		f := NewAnchorFilter(s)
		for _, v := range []int{-90, -50, -60, -70} {
			f.Update("a", v, now)
		}
		// window holds -50, -60, -70
		if got := f.Value("a", now); got != -60 {
			t.Errorf("expected -60, got %v", got)
		}
	})

	t.Run("even window averages middle pair", func(t *testing.T) {
		f := NewAnchorFilter(s)
		f.Update("a", -50, now)
		f.Update("a", -60, now)
		if got := f.Value("a", now); got != -55 {
			t.Errorf("expected -55, got %v", got)
		}
	})

	t.Run("noise floor drops readings", func(t *testing.T) {
		f := NewAnchorFilter(s)
		f.Update("a", -99, now)
		if got := f.Value("a", now); got != NoSignal {
			t.Errorf("expected NoSignal, got %v", got)
		}
	})

	t.Run("stale readings are ignored", func(t *testing.T) {
		f := NewAnchorFilter(s)
		f.Update("a", -50, now)
		if got := f.Value("a", now.Add(5*time.Second)); got != NoSignal {
			t.Errorf("expected NoSignal for stale anchor, got %v", got)
		}
	})
}

func TestZoneStabilizer(t *testing.T) {
	b1 := Zone{Block: 1, Label: "Block 1"}
	b2 := Zone{Block: 2, Label: "Block 2"}

	t.Run("first estimate is shown immediately", func(t *testing.T) {
		z := NewZoneStabilizer(4)
		if got := z.Update(b1); got != b1 {
			t.Errorf("expected %v, got %v", b1, got)
		}
	})

	t.Run("switches only on strict majority", func(t *testing.T) {
		z := NewZoneStabilizer(4)
		z.Update(b1)
		z.Update(b1)
		z.Update(b2)
		if got := z.Update(b2); got != b1 {
			t.Errorf("2 of 4 should not switch, got %v", got)
		}
		if got := z.Update(b2); got != b2 {
			t.Errorf("3 of 4 should switch, got %v", got)
		}
	})
}

func TestTracker(t *testing.T) {
	s := DefaultSettings()
	s.StabilizeCount = 1
	tracker := NewTracker(s, map[string]Column{
		"Anchor_1": ColumnLeft,
		"Anchor_2": ColumnCenter,
		"Anchor_3": ColumnRight,
	})
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	prev, cur := tracker.Observe("dev", "Anchor_3", -45, now)
	if prev != Unknown {
		t.Errorf("expected Unknown before first reading, got %v", prev)
	}
	if cur.Block != 3 {
		t.Errorf("expected block 3, got %d", cur.Block)
	}

	// A reading below the noise floor is not a vote
	prev, cur = tracker.Observe("dev", "Anchor_1", -99, now)
	if prev != cur || cur.Block != 3 {
		t.Errorf("expected block 3 unchanged, got %v -> %v", prev, cur)
	}

	if tracker.Len() != 1 {
		t.Errorf("expected 1 device, got %d", tracker.Len())
	}
	if removed := tracker.Prune(now.Add(10 * time.Second)); removed != 1 {
		t.Errorf("expected stale device to be pruned, removed %d", removed)
	}
}
