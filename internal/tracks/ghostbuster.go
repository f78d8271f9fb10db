package tracks

import "github.com/rawblock/emtf-trigger/pkg/models"

// keyLayers mirrors roads.keyLayers (ME1/1, ME1/2, ME0, MB1, MB2): the
// layers ghost busting treats as enough to call two tracks duplicates of
// the same muon.
var keyLayers = []int{0, 1, 11, 12, 13}

// GhostBust suppresses tracks that share a key hit with a higher-ranked
// track. Tracks are first sorted by (zone, chi2) descending,
// then each track is accepted unless any already-kept track — regardless
// of its zone — shares a key layer's hit, so of two tracks sharing a key
// hit, the one earlier in (zone, chi2) order survives.
func GhostBust(input []*models.Track) []*models.Track {
	if len(input) == 0 {
		return nil
	}

	sorted := make([]*models.Track, len(input))
	copy(sorted, input)
	insertionSortTracks(sorted)

	var kept []*models.Track
	for _, t := range sorted {
		suppressed := false
		for _, acc := range kept {
			if t.SharesKeyHit(acc, keyLayers) {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, t)
		}
	}
	return kept
}

func insertionSortTracks(ts []*models.Track) {
	descending := func(a, b *models.Track) bool {
		if a.Zone != b.Zone {
			return a.Zone > b.Zone
		}
		return a.Chi2 > b.Chi2
	}
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && descending(ts[j], ts[j-1]); j-- {
			ts[j-1], ts[j] = ts[j], ts[j-1]
		}
	}
}
