package domain

// Delta is the outcome of comparing one cycle against the previous one.
type Delta struct {
	NewItems []Detection `json:"new_items"`
	IsNew    bool        `json:"is_new"`
}

// Dedupe collapses detections sharing an identity into one record.
// The latest record in input order wins; the output keeps the position at which
// each identity was first seen.
func Dedupe(detections []Detection) []Detection {
	if len(detections) == 0 {
		return []Detection{}
	}

	order := make([]string, 0, len(detections))
	latest := make(map[string]Detection, len(detections))
	for _, d := range detections {
		key := Identity(d)
		if _, seen := latest[key]; !seen {
			order = append(order, key)
		}
		latest[key] = d
	}

	out := make([]Detection, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out
}

// Exclude drops detections whose normalized MAC is in the whitelist index.
// Detections without a MAC are always kept; SSID is not consulted.
func Exclude(detections []Detection, index WhitelistIndex) []Detection {
	out := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if index.Contains(d.MAC) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Reduce runs exclusion and deduplication over a raw batch and returns the
// reconciled set for the cycle.
func Reduce(raw []Detection, index WhitelistIndex) ReconciledSet {
	return ReconciledSet(Dedupe(Exclude(raw, index)))
}

// Diff classifies each current record as new when no prior record shares its
// identity. New items keep their order in current.
func Diff(current, prior ReconciledSet) Delta {
	seen := make(map[string]struct{}, len(prior))
	for _, d := range prior {
		seen[Identity(d)] = struct{}{}
	}

	var fresh []Detection
	for _, d := range current {
		if _, ok := seen[Identity(d)]; !ok {
			fresh = append(fresh, d)
		}
	}

	return Delta{
		NewItems: fresh,
		IsNew:    len(fresh) > 0,
	}
}
