package geometry

import (
	"testing"

	"github.com/rawblock/emtf-trigger/pkg/models"
)

func TestFindPtBin_Saturates(t *testing.T) {
	// Far below the lowest edge and far above the highest edge must clip to
	// the first/last bin rather than running off the table.
	if got := FindPtBin(-10.0); got != 0 {
		t.Errorf("FindPtBin(-10.0) = %d, want 0", got)
	}
	if got := FindPtBin(10.0); got != NPt-1 {
		t.Errorf("FindPtBin(10.0) = %d, want %d", got, NPt-1)
	}
	if got := FindPtBin(0.); got != 4 {
		t.Errorf("FindPtBin(0.) = %d, want 4 (centre bin)", got)
	}
}

func TestFindEtaBin_Saturates(t *testing.T) {
	// Zone 0 is the most forward: |eta|=0 saturates into the last zone and
	// |eta|=5 into zone 0.
	if got := FindEtaBin(0.0); got != NEta-1 {
		t.Errorf("FindEtaBin(0.0) = %d, want %d", got, NEta-1)
	}
	if got := FindEtaBin(5.0); got != 0 {
		t.Errorf("FindEtaBin(5.0) = %d, want 0", got)
	}
	// Sign shouldn't matter, only |eta|.
	if FindEtaBin(-2.2) != FindEtaBin(2.2) {
		t.Errorf("FindEtaBin should be symmetric in sign")
	}
}

func TestPatternX_Boundaries(t *testing.T) {
	// PatternXSearchMin/Max (33, 144) bound the iphi a hit may generate;
	// PatternX itself is the raw (phi+16)/32 floor-div used to get there.
	cases := []struct {
		phi  int
		want int
	}{
		{-16, 0},
		{-17, -1},
		{15, 0},
		{16, 1},
		{PatternXSearchMin*32 - 16, PatternXSearchMin},
		{PatternXSearchMax*32 - 16, PatternXSearchMax},
	}
	for _, c := range cases {
		if got := PatternX(c.phi); got != c.want {
			t.Errorf("PatternX(%d) = %d, want %d", c.phi, got, c.want)
		}
	}
}

func TestCalcPhiLocInt_RoundTrip(t *testing.T) {
	for sector := 1; sector <= 6; sector++ {
		for _, glob := range []float64{-179.9, -10.0, 0.0, 37.5, 179.9} {
			bits := CalcPhiLocInt(glob, sector)
			back := CalcPhiGlobDeg(CalcPhiLocDeg(bits), sector)
			// Round trip through the integer unit loses sub-unit precision
			// (1/60 degree); allow for that rounding.
			diff := RangePhiDeg(back - glob)
			if diff > 0.05 || diff < -0.05 {
				t.Errorf("sector=%d glob=%v: round trip gave %v (diff %v)", sector, glob, back, diff)
			}
		}
	}
}

func TestCalcPhiLocInt_WrapsGlobalPhi(t *testing.T) {
	// -170 deg and +190 deg are the same azimuth; the integer unit must not
	// care which representation the caller picked.
	if a, b := CalcPhiLocInt(-170, 1), CalcPhiLocInt(190, 1); a != b {
		t.Errorf("CalcPhiLocInt(-170,1)=%d != CalcPhiLocInt(190,1)=%d", a, b)
	}
}

func TestCalcThetaInt_RoundTrip(t *testing.T) {
	for _, deg := range []float64{8.5, 20.0, 30.0, 45.0} {
		bits := CalcThetaInt(deg, 1)
		back := CalcThetaDegFromInt(bits)
		diff := back - deg
		if diff > 0.3 || diff < -0.3 {
			t.Errorf("theta=%v: round trip gave %v", deg, back)
		}
	}
}

func TestMedianInt_EvenPicksLowerMiddle(t *testing.T) {
	if got := MedianInt([]int{1, 2, 3, 4}); got != 2 {
		t.Errorf("MedianInt([1,2,3,4]) = %d, want 2 (lower middle)", got)
	}
	if got := MedianInt([]int{5}); got != 5 {
		t.Errorf("MedianInt([5]) = %d, want 5", got)
	}
	if got := MedianInt(nil); got != 0 {
		t.Errorf("MedianInt(nil) = %d, want 0", got)
	}
	// Order of the input must not matter.
	if got := MedianInt([]int{4, 1, 3, 2}); got != 2 {
		t.Errorf("MedianInt unsorted input = %d, want 2", got)
	}
}

func TestRoadQuality_PeaksAtCentre(t *testing.T) {
	centre := FindPtBin(0.)
	q := RoadQuality(centre)
	for ipt := 0; ipt < NPt; ipt++ {
		if ipt == centre {
			continue
		}
		if RoadQuality(ipt) >= q {
			t.Errorf("RoadQuality(%d) = %d should be < RoadQuality(centre)=%d", ipt, RoadQuality(ipt), q)
		}
	}
}

func TestLayer_UnknownCombinationIsUnassigned(t *testing.T) {
	if got := Layer(models.DetCSC, 9, 9); got != -99 {
		t.Errorf("Layer for an unmapped combination = %d, want -99", got)
	}
	if got := Layer(models.DetCSC, 1, 1); got != 0 {
		t.Errorf("Layer(CSC,1,1) = %d, want 0 (ME1/1b)", got)
	}
}

func TestZones_OutsideWindowYieldsNoZone(t *testing.T) {
	zs := Zones(models.DetCSC, 1, 1, 200)
	if len(zs) != 0 {
		t.Errorf("theta=200 should fall outside every ME1/1 window, got zones %v", zs)
	}
	zs = Zones(models.DetCSC, 1, 1, 10)
	if len(zs) == 0 {
		t.Errorf("theta=10 should land in at least one ME1/1 zone window")
	}
}

func TestPhi_CorrectsOnlyCSCStation1(t *testing.T) {
	h := models.RawHit{Type: models.DetCSC, Station: 2, Ring: 1, EMTFPhi: 1000, EMTFBend: 50, FR: 0, Endcap: 1}
	if got := Phi(h); got != 1000 {
		t.Errorf("Phi should pass through unchanged for CSC station != 1, got %d", got)
	}

	h1 := models.RawHit{Type: models.DetCSC, Station: 1, Ring: 1, EMTFPhi: 1000, EMTFBend: 10, FR: 0, Endcap: 1}
	if got := Phi(h1); got == 1000 {
		t.Errorf("Phi should apply a bend correction for CSC station 1, got unchanged %d", got)
	}
}

func TestBend_DTZeroedBelowQuality4(t *testing.T) {
	h := models.RawHit{Type: models.DetDT, Quality: 3, EMTFBend: 100}
	if got := Bend(h); got != 0 {
		t.Errorf("DT bend below quality 4 should be zeroed, got %d", got)
	}
	h.Quality = 4
	if got := Bend(h); got != 100 {
		t.Errorf("DT bend at quality 4 should pass clamped value through, got %d", got)
	}
}
