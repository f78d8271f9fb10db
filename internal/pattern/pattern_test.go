package pattern

import (
	"testing"

	"github.com/rawblock/emtf-trigger/internal/bank"
	"github.com/rawblock/emtf-trigger/internal/geometry"
	"github.com/rawblock/emtf-trigger/pkg/models"
)

func TestKeepRoad_SingleMuAndMuOpenSurvives(t *testing.T) {
	acc := &accumulator{roadMode: 15, roadModeCSC: 15} // ME1/1+2/3/4 all present
	if !keepRoad(3, acc) {
		t.Errorf("mode=15 (SingleMu) with roadModeCSC=15 (MuOpen) should survive at any ieta")
	}
}

func TestKeepRoad_NonSingleMuIsRejectedOutsideSpecialZones(t *testing.T) {
	acc := &accumulator{roadMode: 8, roadModeCSC: 8} // just bit 3, not in singleMuModes
	if keepRoad(3, acc) {
		t.Errorf("a non-SingleMu mode away from the ME0/OMTF zones must not survive")
	}
}

func TestKeepRoad_ME0ZoneSurvivesOnModeME0Combo(t *testing.T) {
	acc := &accumulator{roadMode: 8, roadModeCSC: 8, roadModeME0: 6} // ME0 + ME1/1 combo
	if !keepRoad(0, acc) {
		t.Errorf("ieta=0 with roadModeME0>=6 should survive regardless of SingleMu/MuOpen")
	}
	if !keepRoad(1, acc) {
		t.Errorf("ieta=1 with roadModeME0>=6 should survive regardless of SingleMu/MuOpen")
	}
	if keepRoad(2, acc) {
		t.Errorf("the ME0 combo rule only applies to ieta 0 or 1")
	}
}

func TestKeepRoad_OMTFZoneRejectsExcludedModes(t *testing.T) {
	acc := &accumulator{roadMode: 8, roadModeCSC: 8, roadModeOMTF: 1} // excluded
	if keepRoad(6, acc) {
		t.Errorf("ieta=6 with an excluded OMTF mode must not survive")
	}
	acc.roadModeOMTF = 3 // not in the excluded set
	if !keepRoad(6, acc) {
		t.Errorf("ieta=6 with a non-excluded OMTF mode should survive")
	}
}

func TestAccumulateHit_BuildsAllModeAggregates(t *testing.T) {
	acc := &accumulator{}
	me0Hit := &models.ProcessedHit{Layer: 11, Raw: models.RawHit{Type: models.DetME0, Station: 1, Ring: 1}}
	me11Hit := &models.ProcessedHit{Layer: 0, Raw: models.RawHit{Type: models.DetCSC, Station: 1, Ring: 1}}

	accumulateHit(acc, me0Hit)
	accumulateHit(acc, me11Hit)

	if len(acc.hits) != 2 {
		t.Fatalf("expected 2 accumulated hits, got %d", len(acc.hits))
	}
	if acc.roadMode != stationBit(1) {
		t.Errorf("roadMode = %d, want %d (both hits are station 1)", acc.roadMode, stationBit(1))
	}
	if acc.roadModeCSC != stationBit(1) {
		t.Errorf("roadModeCSC = %d, want %d (ME0 and CSC both count)", acc.roadModeCSC, stationBit(1))
	}
	if acc.roadModeME0 != 6 {
		t.Errorf("roadModeME0 = %d, want 6 (ME0 bit2 | ME1/1 bit1)", acc.roadModeME0)
	}
	if acc.roadModeOMTF != 0 {
		t.Errorf("roadModeOMTF = %d, want 0 (no DT or OMTF-region CSC hit)", acc.roadModeOMTF)
	}
}

func TestMatcher_MatchesForRespectsBankWindow(t *testing.T) {
	entries := geometry.NPt * geometry.NEta * geometry.NLayers * 3
	x := make([]int32, entries)
	z := make([]int32, entries)
	// Every cell starts with a window (100,100,100) that covers no offset
	// in the matcher's [-23,23] search range; only (ipt=4, ieta=2, layer=0)
	// is narrowed to cover exactly offset 0.
	for i := range x {
		x[i] = 100
	}
	idx := ((4*geometry.NEta+2)*geometry.NLayers + 0) * 3
	x[idx], x[idx+1], x[idx+2] = 0, 0, 0

	b, err := bank.FromArrays(x, z)
	if err != nil {
		t.Fatalf("FromArrays failed: %v", err)
	}
	m := NewMatcher(b)

	matches := m.matchesFor(2, 0)
	if len(matches) != 1 {
		t.Fatalf("expected exactly one matching (ipt,offset) pair, got %d: %+v", len(matches), matches)
	}
	if matches[0].ipt != 4 || matches[0].offset != 0 {
		t.Errorf("got match %+v, want {ipt:4 offset:0}", matches[0])
	}

	// A different (zone,layer) still holding the out-of-range (100,100,100)
	// window should match nothing.
	if got := m.matchesFor(2, 1); len(got) != 0 {
		t.Errorf("expected no matches for an untouched bank slice, got %d", len(got))
	}
}

// fourStationHits builds one CSC hit per station 1-4, all in zone 2 at the
// same phi, so a uniform bank collapses them onto a single road per ipt.
func fourStationHits(phi int) []*models.ProcessedHit {
	layers := map[int]int{1: 0, 2: 2, 3: 3, 4: 4}
	var out []*models.ProcessedHit
	for station := 1; station <= 4; station++ {
		out = append(out, &models.ProcessedHit{
			Layer:     layers[station],
			Zones:     []int{2},
			EMTFPhi:   phi,
			EMTFTheta: 30,
			Raw:       models.RawHit{Type: models.DetCSC, Station: station, Ring: 1},
		})
	}
	return out
}

func TestRecognize_IPhiSearchWindowBoundaries(t *testing.T) {
	entries := geometry.NPt * geometry.NEta * geometry.NLayers * 3
	b, err := bank.FromArrays(make([]int32, entries), make([]int32, entries))
	if err != nil {
		t.Fatalf("FromArrays failed: %v", err)
	}
	m := NewMatcher(b)

	// With an all-zero bank only offset 0 matches, so iphi = hit_x + 23.
	cases := []struct {
		phi      int
		wantIPhi int
		kept     bool
	}{
		{288, 32, false},  // hit_x = 9, below the search window
		{320, 33, true},   // hit_x = 10, lowest retained bin
		{3872, 144, true}, // hit_x = 121, highest retained bin
		{3904, 145, false},
	}
	for _, c := range cases {
		roads := Recognize(m, fourStationHits(c.phi), 1, 1, false)
		if !c.kept {
			if len(roads) != 0 {
				t.Errorf("phi=%d: expected iphi=%d to be rejected, got %d roads", c.phi, c.wantIPhi, len(roads))
			}
			continue
		}
		if len(roads) == 0 {
			t.Errorf("phi=%d: expected roads at iphi=%d, got none", c.phi, c.wantIPhi)
			continue
		}
		for _, r := range roads {
			if r.ID.IPhi != c.wantIPhi {
				t.Errorf("phi=%d: road at iphi=%d, want %d", c.phi, r.ID.IPhi, c.wantIPhi)
			}
		}
	}
}

func TestMatcher_Warm_PopulatesEveryCacheEntry(t *testing.T) {
	entries := geometry.NPt * geometry.NEta * geometry.NLayers * 3
	x := make([]int32, entries)
	z := make([]int32, entries)
	b, err := bank.FromArrays(x, z)
	if err != nil {
		t.Fatalf("FromArrays failed: %v", err)
	}
	m := NewMatcher(b)
	m.Warm()
	if len(m.cache) != geometry.NEta*geometry.NLayers {
		t.Errorf("Warm should populate one cache entry per (zone,layer), got %d want %d", len(m.cache), geometry.NEta*geometry.NLayers)
	}
}
