package domain

// SignalStrength buckets an RSSI reading for display
type SignalStrength string

const (
	SignalStrong SignalStrength = "strong"
	SignalMedium SignalStrength = "medium"
	SignalWeak   SignalStrength = "weak"
)

// ClassifySignal maps dBm to a strength bucket: above -50 is strong,
// above -70 is medium, anything else weak.
func ClassifySignal(rssi int) SignalStrength {
	switch {
	case rssi > -50:
		return SignalStrong
	case rssi > -70:
		return SignalMedium
	default:
		return SignalWeak
	}
}

// SignalPercent maps -100..-40 dBm onto 0..100.
func SignalPercent(rssi int) float64 {
	p := float64(rssi+100) / 60 * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
