package adapter

import "time"

// NmapOption is a functional option for configuring NmapAdapter
type NmapOption func(*NmapAdapter)

// WithInterval sets the polling interval for periodic probes
func WithInterval(d time.Duration) NmapOption {
	return func(n *NmapAdapter) {
		if d > 0 {
			n.interval = d
		}
	}
}

// WithTimeout sets the timeout for a single ping sweep
func WithTimeout(d time.Duration) NmapOption {
	return func(n *NmapAdapter) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithSkipHostDiscovery treats all anchors as online (-Pn).
// Useful for networks that block ICMP.
func WithSkipHostDiscovery(skip bool) NmapOption {
	return func(n *NmapAdapter) {
		n.skipHostDiscovery = skip
	}
}

// WithAnchors replaces the anchor list
func WithAnchors(anchors []AnchorTarget) NmapOption {
	return func(n *NmapAdapter) {
		n.anchors = anchors
	}
}

func withScanFunc(fn scanFunc) NmapOption {
	return func(n *NmapAdapter) {
		n.scan = fn
	}
}
