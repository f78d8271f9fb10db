// Package pattern implements pattern recognition: matching
// each qualifying sector's hits against the pattern bank and accumulating
// the matches into roads keyed by (endcap, sector, ipt, ieta, iphi).
package pattern

import (
	"sync"

	"github.com/rawblock/emtf-trigger/internal/bank"
	"github.com/rawblock/emtf-trigger/internal/geometry"
	"github.com/rawblock/emtf-trigger/pkg/models"
)

// offsetMatch is one (ipt, pattern-offset) pair accepted for a hit landing
// in a given (zone, layer) pattern-bank slice.
type offsetMatch struct {
	ipt    int
	offset int
}

// Matcher caches per-(zone,layer) pattern-bank lookups. There are only
// 7*16 = 112 entries, so the cache may be pre-warmed at init and is safe to
// share read-only across per-event workers once warm; concurrent first-use
// population is protected by a mutex; the table is cheap enough to share
// behind a lock instead of keeping a copy per worker.
type Matcher struct {
	bank *bank.Bank

	mu    sync.Mutex
	cache map[[2]int][]offsetMatch
}

// NewMatcher creates a Matcher bound to the given pattern bank.
func NewMatcher(b *bank.Bank) *Matcher {
	return &Matcher{bank: b, cache: make(map[[2]int][]offsetMatch, geometry.NEta*geometry.NLayers)}
}

// Warm pre-computes every (zone, layer) cache entry.
func (m *Matcher) Warm() {
	for zone := 0; zone < geometry.NEta; zone++ {
		for layer := 0; layer < geometry.NLayers; layer++ {
			m.matchesFor(zone, layer)
		}
	}
}

// matchesFor returns the (ipt, offset) pairs whose pattern-x window
// [x_lo, x_hi] contains some offset in [-23, 23], for every ipt bin, in the
// given (zone, layer) bank slice.
func (m *Matcher) matchesFor(zone, layer int) []offsetMatch {
	key := [2]int{zone, layer}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.cache[key]; ok {
		return cached
	}

	var matches []offsetMatch
	for ipt := 0; ipt < geometry.NPt; ipt++ {
		lo, _, hi := m.bank.XAt(ipt, zone, layer)
		for offset := -geometry.PatternXCentral; offset <= geometry.PatternXCentral; offset++ {
			if int32(offset) >= lo && int32(offset) <= hi {
				matches = append(matches, offsetMatch{ipt: ipt, offset: offset})
			}
		}
	}
	m.cache[key] = matches
	return matches
}

// stationBit is (1 << (4-station)), the same station-presence encoding
// used throughout for the 4-bit "mode" field.
func stationBit(station int) int {
	return 1 << (4 - station)
}

// singleMuModes and muOpenModes are the station-mode membership sets the
// road survival rule tests against.
var singleMuModes = map[int]bool{11: true, 13: true, 14: true, 15: true}
var muOpenModes = map[int]bool{
	3: true, 5: true, 6: true, 7: true, 9: true, 10: true,
	11: true, 12: true, 13: true, 14: true, 15: true,
}
var omtfExcludedModes = map[int]bool{1: true, 2: true, 4: true, 8: true}

// accumulator holds one in-progress road's hits and mode aggregates while
// hits are being accumulated onto it.
type accumulator struct {
	hits        []*models.ProcessedHit
	roadMode    int
	roadModeCSC int
	roadModeME0 int
	roadModeOMTF int
}

// Recognize runs pattern matching for one qualifying sector's hits, and
// returns the roads that survive the SingleMu/ME0/OMTF keep rule.
func Recognize(m *Matcher, sectorHits []*models.ProcessedHit, endcap, sector int, omtfInput bool) []*models.Road {
	amap := make(map[models.RoadID]*accumulator)

	for _, hit := range sectorHits {
		hitX := geometry.PatternX(hit.EMTFPhi)

		for _, zone := range hit.Zones {
			if omtfInput {
				if zone != 6 {
					continue
				}
			} else if zone == 6 {
				continue
			}

			for _, match := range m.matchesFor(zone, hit.Layer) {
				iphi := hitX - (match.offset - geometry.PatternXCentral)
				if iphi < geometry.PatternXSearchMin || iphi > geometry.PatternXSearchMax {
					continue
				}

				id := models.RoadID{Endcap: endcap, Sector: sector, IPT: match.ipt, IEta: zone, IPhi: iphi}
				acc, ok := amap[id]
				if !ok {
					acc = &accumulator{}
					amap[id] = acc
				}
				accumulateHit(acc, hit)
			}
		}
	}

	var roads []*models.Road
	for id, acc := range amap {
		if !keepRoad(id.IEta, acc) {
			continue
		}

		var thetas []int
		for _, h := range acc.hits {
			if h.Raw.Type == models.DetCSC {
				thetas = append(thetas, h.EMTFTheta)
			}
		}

		sortCode := 0
		for _, h := range acc.hits {
			sortCode |= 1 << geometry.SortCodeBit(h.Layer)
		}
		quality := geometry.RoadQuality(id.IPT)
		sortCode |= quality

		roads = append(roads, &models.Road{
			ID:          id,
			Hits:        acc.hits,
			Mode:        acc.roadMode,
			Quality:     quality,
			SortCode:    sortCode,
			ThetaMedian: geometry.MedianInt(thetas),
		})
	}
	return roads
}

func accumulateHit(acc *accumulator, hit *models.ProcessedHit) {
	acc.hits = append(acc.hits, hit)

	t := hit.Raw.Type
	station := hit.Raw.Station
	ring := hit.Raw.Ring

	acc.roadMode |= stationBit(station)

	if t == models.DetCSC || t == models.DetME0 {
		acc.roadModeCSC |= stationBit(station)
	}

	switch {
	case t == models.DetME0:
		acc.roadModeME0 |= 1 << 2
	case t == models.DetCSC && station == 1 && (ring == 1 || ring == 4):
		acc.roadModeME0 |= 1 << 1
	case t == models.DetCSC && station >= 2:
		acc.roadModeME0 |= 1 << 0
	}

	switch {
	case t == models.DetDT && station == 1:
		acc.roadModeOMTF |= 1 << 3
	case t == models.DetDT && station == 2:
		acc.roadModeOMTF |= 1 << 2
	case t == models.DetDT && station == 3:
		acc.roadModeOMTF |= 1 << 1
	case t == models.DetCSC && station == 1 && ring == 3:
		acc.roadModeOMTF |= 1 << 1
	case t == models.DetCSC && station == 2 && ring == 2:
		acc.roadModeOMTF |= 1 << 0
	}
}

func keepRoad(ieta int, acc *accumulator) bool {
	if singleMuModes[acc.roadMode] && muOpenModes[acc.roadModeCSC] {
		return true
	}
	if (ieta == 0 || ieta == 1) && acc.roadModeME0 >= 6 {
		return true
	}
	if ieta == 6 && !omtfExcludedModes[acc.roadModeOMTF] {
		return true
	}
	return false
}
