// Package geometry holds the fixed geometric decomposition of the endcap
// muon trigger: the (type,station,ring) -> layer/zone lookup tables, the
// integer phi/theta coordinate conversions, and the per-ring bend
// correction tables. Everything here is process-lifetime, read-only data
// plus pure arithmetic over it — no hit ever mutates a table.
package geometry

import (
	"math"

	"github.com/rawblock/emtf-trigger/pkg/models"
)

// NLayers is the number of logical detector layers the trigger distinguishes.
const NLayers = 16

// NEta is the number of pseudorapidity zones (0..6).
const NEta = 7

// NPt is the number of transverse-momentum pattern bins (0..8).
const NPt = 9

// PatternXCentral is the central pattern-x bin; pattern-bank offsets are
// stored relative to it.
const PatternXCentral = 23

// PatternXSearchMin/Max bound the road iphi a hit may generate.
const (
	PatternXSearchMin = 33
	PatternXSearchMax = 154 - 10
)

// EtaBins and PtBins are the zone and q/pT bucket edges. EtaBins runs from
// high to low |eta|, so index 0 is the most forward (highest-|eta|) zone;
// PtBins is ascending, so index 0 is the most negative q/pT bin.
var EtaBins = [NEta + 1]float64{2.4, 2.16, 1.98, 1.8, 1.7, 1.56, 1.2, 0.8}

var PtBins = [NPt + 1]float64{-0.5, -0.365, -0.26, -0.155, -0.07, 0.07, 0.155, 0.26, 0.365, 0.5}

var PtBinsOMTF = [NPt + 1]float64{-0.25, -0.2, -0.15, -0.10, -0.05, 0.05, 0.10, 0.15, 0.20, 0.25}

// floorDivInt performs Python-style floor division for ints (rounds toward
// negative infinity, unlike Go's truncating /).
func floorDivInt(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// RangePhiDeg wraps a degree value into [-180, 180).
func RangePhiDeg(deg float64) float64 {
	for deg < -180. {
		deg += 360.
	}
	for deg >= 180. {
		deg -= 360.
	}
	return deg
}

// CalcPhiLocDegFromGlob converts a global phi (degrees) to sector-local
// degrees for the given sector (1..6).
func CalcPhiLocDegFromGlob(glob float64, sector int) float64 {
	glob = RangePhiDeg(glob)
	return glob - 15. - (60. * float64(sector-1))
}

// CalcPhiLocInt converts global phi (degrees) and sector to the integer
// local-phi unit (60 units/degree, offset 22 degrees).
func CalcPhiLocInt(glob float64, sector int) int {
	loc := CalcPhiLocDegFromGlob(glob, sector)
	if loc+22. < 0. {
		loc += 360.
	}
	loc = (loc + 22.) * 60.
	return int(math.Round(loc))
}

// CalcPhiLocDeg converts the integer local-phi unit back to degrees.
func CalcPhiLocDeg(bits int) float64 {
	return float64(bits)/60. - 22.
}

// CalcPhiGlobDeg converts sector-local degrees back to a global phi in
// [-180, 180).
func CalcPhiGlobDeg(loc float64, sector int) float64 {
	glob := loc + 15. + (60. * float64(sector-1))
	if glob >= 180. {
		glob -= 360.
	}
	return glob
}

// CalcThetaInt converts a polar angle in degrees (endcap-corrected) to the
// 7-bit integer theta unit over [8.5, 45] degrees.
func CalcThetaInt(thetaDeg float64, endcap int) int {
	if endcap == -1 {
		thetaDeg = 180. - thetaDeg
	}
	thetaDeg = (thetaDeg - 8.5) * 128. / (45.0 - 8.5)
	return int(math.Round(thetaDeg))
}

// CalcThetaDegFromInt is the inverse of CalcThetaInt (ignoring the endcap fold).
func CalcThetaDegFromInt(thetaInt int) float64 {
	return float64(thetaInt)*(45.0-8.5)/128. + 8.5
}

// CalcEtaFromThetaDeg converts a polar angle in degrees to pseudorapidity,
// signed by endcap.
func CalcEtaFromThetaDeg(thetaDeg float64, endcap int) float64 {
	thetaRad := thetaDeg * math.Pi / 180.
	eta := -1. * math.Log(math.Tan(thetaRad/2.))
	if endcap == -1 {
		eta = -eta
	}
	return eta
}

// PatternX returns the pattern-x ("quadstrip") bin for an integer phi value.
func PatternX(emtfPhi int) int {
	return floorDivInt(emtfPhi+16, 32)
}

// Digitize buckets x into [0,nbins) using floor((x-x0)/(x1-x0)*nbins),
// clipped to the valid range. x1 is exclusive (half-open binning).
func Digitize(x, x0, x1 float64, nbins int) int {
	if x1 <= x0 || nbins <= 0 {
		return 0
	}
	clipped := x
	// Clamp just inside the upper edge so values exactly at x1 land in the
	// last bin rather than overflowing it.
	const eps = 1e-9
	if clipped >= x1 {
		clipped = x1 - eps
	}
	if clipped < x0 {
		clipped = x0
	}
	bin := int(math.Floor((clipped - x0) / (x1 - x0) * float64(nbins)))
	if bin < 0 {
		bin = 0
	}
	if bin > nbins-1 {
		bin = nbins - 1
	}
	return bin
}

// FindPtBin maps a signed q/pT value to its pattern-bank ipt index [0,9),
// saturating at the edges.
func FindPtBin(qOverPt float64) int {
	return digitizeEdges(qOverPt, PtBins[1:])
}

// FindPtBinOMTF is FindPtBin using the OMTF (>=4 GeV) bin edges.
func FindPtBinOMTF(qOverPt float64) int {
	return digitizeEdges(qOverPt, PtBinsOMTF[1:])
}

// FindEtaBin maps |eta| to its pattern-bank ieta index [0,7), saturating.
// EtaBins descends, so the highest |eta| lands in ieta 0.
func FindEtaBin(eta float64) int {
	x := math.Abs(eta)
	bin := 0
	for _, e := range EtaBins[1:] {
		if x < e {
			bin++
		} else {
			break
		}
	}
	if bin > NEta-1 {
		bin = NEta - 1
	}
	return bin
}

// digitizeEdges buckets x against ascending edges, clipped to
// [0, len(edges)-1], skipping the lowest edge.
func digitizeEdges(x float64, edges []float64) int {
	bin := 0
	for _, e := range edges {
		if x >= e {
			bin++
		} else {
			break
		}
	}
	if bin > len(edges)-1 {
		bin = len(edges) - 1
	}
	return bin
}

// Layer returns the logical layer [0,16) for a (type,station,ring) triple,
// or -99 if the combination is not instrumented.
func Layer(t models.DetType, station, ring int) int {
	if v, ok := layerLUT[[3]int{int(t), station, ring}]; ok {
		return v
	}
	return -99
}

var layerLUT = map[[3]int]int{
	{1, 1, 4}: 0, // ME1/1a
	{1, 1, 1}: 0, // ME1/1b
	{1, 1, 2}: 1, // ME1/2
	{1, 1, 3}: 1, // ME1/3
	{1, 2, 1}: 2, // ME2/1
	{1, 2, 2}: 2, // ME2/2
	{1, 3, 1}: 3, // ME3/1
	{1, 3, 2}: 3, // ME3/2
	{1, 4, 1}: 4, // ME4/1
	{1, 4, 2}: 4, // ME4/2
	{2, 1, 2}: 5, // RE1/2
	{2, 1, 3}: 5, // RE1/3
	{2, 2, 2}: 6, // RE2/2
	{2, 2, 3}: 6, // RE2/3
	{2, 3, 1}: 7, // RE3/1
	{2, 3, 2}: 7, // RE3/2
	{2, 3, 3}: 7, // RE3/3
	{2, 4, 1}: 8, // RE4/1
	{2, 4, 2}: 8, // RE4/2
	{2, 4, 3}: 8, // RE4/3
	{3, 1, 1}: 9, // GE1/1
	{3, 2, 1}: 10, // GE2/1
	{4, 1, 1}: 11, // ME0
	{0, 1, 1}: 12, // MB1
	{0, 2, 1}: 13, // MB2
	{0, 3, 1}: 14, // MB3
	{0, 4, 1}: 15, // MB4
}

// zoneRange is the inclusive [thetaMin, thetaMax] window for one zone.
type zoneRange struct {
	zone     int
	min, max int
}

// zoneLUT lists, for each (type,station,ring), the zones it can contribute
// to and each zone's theta window.
var zoneLUT = map[[3]int][]zoneRange{
	{1, 1, 4}: {{0, 4, 17}, {1, 16, 25}, {2, 24, 36}, {3, 34, 43}, {4, 41, 53}}, // ME1/1a
	{1, 1, 1}: {{0, 4, 17}, {1, 16, 25}, {2, 24, 36}, {3, 34, 43}, {4, 41, 53}}, // ME1/1b
	{1, 1, 2}: {{4, 46, 54}, {5, 52, 88}, {6, 80, 88}},                         // ME1/2
	{1, 1, 3}: {{6, 98, 125}},                                                  // ME1/3

	{1, 2, 1}: {{0, 4, 17}, {1, 16, 25}, {2, 24, 36}, {3, 34, 43}, {4, 41, 49}}, // ME2/1
	{1, 2, 2}: {{5, 53, 90}, {6, 83, 111}},                                     // ME2/2

	{1, 3, 1}: {{0, 4, 17}, {1, 16, 25}, {2, 24, 36}, {3, 34, 40}}, // ME3/1
	{1, 3, 2}: {{4, 44, 54}, {5, 52, 90}, {6, 83, 96}},             // ME3/2

	{1, 4, 1}: {{0, 4, 17}, {1, 16, 25}, {2, 24, 35}},  // ME4/1
	{1, 4, 2}: {{3, 38, 43}, {4, 41, 54}, {5, 52, 90}}, // ME4/2

	{2, 1, 2}: {{5, 52, 84}},   // RE1/2
	{2, 1, 3}: {{6, 100, 120}}, // RE1/3
	{2, 2, 2}: {{5, 56, 88}},   // RE2/2
	{2, 2, 3}: {{6, 88, 112}},  // RE2/3
	{2, 3, 1}: {{0, 4, 20}, {1, 20, 24}, {2, 24, 32}},                          // RE3/1
	{2, 3, 2}: {{3, 40, 40}, {4, 40, 52}, {5, 48, 84}},                         // RE3/2
	{2, 3, 3}: {{3, 40, 40}, {4, 40, 52}, {5, 48, 84}, {6, 80, 92}},            // RE3/3
	{2, 4, 1}: {{0, 8, 16}, {1, 16, 28}, {2, 24, 28}},                         // RE4/1
	{2, 4, 2}: {{3, 36, 44}, {4, 44, 52}, {5, 52, 84}},                        // RE4/2
	{2, 4, 3}: {{3, 36, 44}, {4, 44, 52}, {5, 52, 84}},                        // RE4/3

	{3, 1, 1}: {{1, 16, 26}, {2, 24, 37}, {3, 35, 45}, {4, 40, 52}},                  // GE1/1
	{3, 2, 1}: {{0, 7, 19}, {1, 18, 24}, {2, 23, 36}, {3, 34, 45}, {4, 40, 46}},      // GE2/1

	{4, 1, 1}: {{0, 4, 17}, {1, 16, 23}}, // ME0

	{0, 1, 1}: {{6, 92, 130}},  // MB1
	{0, 2, 1}: {{6, 108, 138}}, // MB2
	{0, 3, 1}: {{6, 126, 138}}, // MB3
}

// Zones returns the (ascending) list of zone indices whose theta window
// contains the given integer theta for a (type,station,ring) combination.
func Zones(t models.DetType, station, ring, emtfTheta int) []int {
	ranges := zoneLUT[[3]int{int(t), station, ring}]
	var out []int
	for _, r := range ranges {
		if r.min <= emtfTheta && emtfTheta <= r.max {
			out = append(out, r.zone)
		}
	}
	return out
}

// Zee gives the nominal z-position (cm) of each logical layer; DT layers
// have no single z-position in this model and read 0.
var Zee = [NLayers]float64{
	599.0, 696.8, 827.1, 937.5, 1027,
	708.7, 790.9, 968.8, 1060,
	566.4, 794.8,
	539.3,
	0, 0, 0, 0,
}

// LayerPartner returns the companion layer used by road slimming to form
// (hit1, hit2) pairs for deflection-angle matching. In zones 5-6 the CSC
// partner switches from ME1/1 to ME1/2.
var layerPartnerLUT = [NLayers]int{2, 2, 0, 0, 0, 0, 2, 3, 4, 0, 2, 0, 0, 0, 0, 0}

func LayerPartner(layer, zone int) int {
	partner := layerPartnerLUT[layer]
	if zone >= 5 && partner == 0 {
		partner = 1
	}
	return partner
}

// sortCodeLUT assigns each layer a priority bit for the road sort code:
// ME0, ME1/1, GE1/1, ME1/2, ME2, GE2/1, ME3&4, RE1&2, RE3&4, qual.
var sortCodeLUT = [NLayers]int{10, 8, 7, 5, 5, 4, 4, 3, 3, 9, 6, 11, 11, 10, 9, 9}

// SortCodeBit returns the priority bit for the given layer, used to build
// a road's sort_code.
func SortCodeBit(layer int) int {
	return sortCodeLUT[layer]
}

// bestIPT is the ipt bin for q/pT == 0, the centre of the quality triangle.
var bestIPT = FindPtBin(0.)

// RoadQuality scores a road's pattern-bank ipt: highest at the zero-q/pT
// bin, falling off linearly with distance from it.
func RoadQuality(ipt int) int {
	d := ipt - bestIPT
	if d < 0 {
		d = -d
	}
	return bestIPT - d
}

// cscBendCorrCoeff holds the (rear,front) bend-correction coefficient pair
// used by Phi for CSC station-1 hits, keyed by ring.
var cscBendCorrCoeff = map[int][2]float64{
	1: {-1.3861, 1.3692}, // ME1/1b
	4: {-1.6419, 1.6012}, // ME1/1a
	2: {-0.9237, 0.8287}, // ME1/2 (applied to any other ring on station 1)
	3: {-0.9237, 0.8287},
}

// Phi computes the bend-corrected integer phi for a hit. Only CSC station 1
// hits receive a correction; all other hits pass their raw phi through.
func Phi(h models.RawHit) int {
	phi := h.EMTFPhi
	if h.Type != models.DetCSC || h.Station != 1 {
		return phi
	}
	coeff, ok := cscBendCorrCoeff[h.Ring]
	if !ok {
		coeff = cscBendCorrCoeff[2]
	}
	bendCorr := coeff[h.FR] * float64(h.EMTFBend)
	if h.Endcap != 1 {
		bendCorr = -bendCorr
	}
	return phi + int(math.Round(bendCorr))
}

// Theta computes the integer theta for a hit, imputing DT theta from the
// station number when the hit carries no wire information (wire == -1).
func Theta(h models.RawHit) int {
	if h.Type == models.DetDT && h.Wire == -1 {
		switch h.Station {
		case 1:
			return 112
		case 2:
			return 122
		case 3:
			return 131
		}
	}
	return h.EMTFTheta
}

// Quality passes the raw quality field through unchanged.
func Quality(h models.RawHit) int {
	return h.Quality
}

// Time derives emtf_time from bx; a richer timing model would hook in here.
func Time(h models.RawHit) int {
	return h.BX
}

// cscBendFlatteningLUT maps a CLCT pattern code to its signed bend value,
// used only by OldBend.
var cscBendFlatteningLUT = [11]int{5, -5, 4, -4, 3, -3, 2, -2, 1, -1, 0}

// Bend computes the corrected emtf_bend for a hit: CSC station 1 ME1/1a is
// rescaled to ME1/1b's bend scale, CSC stations 2-4 are flattened to
// {-1,0,+1}, GEM is an endcap-signed passthrough, ME0 passes through
// unsigned, and DT is clamped and zeroed below quality 4.
func Bend(h models.RawHit) int {
	switch h.Type {
	case models.DetCSC:
		bend := h.EMTFBend
		if h.Station == 1 {
			if h.Ring == 4 {
				bend = int(math.Round(float64(bend) * (0.026331 / 0.014264)))
			}
		} else if h.Station >= 2 && h.Station <= 4 {
			switch {
			case bend >= -8 && bend <= 8:
				bend = 0
			case bend > 8:
				bend = 1
			default:
				bend = -1
			}
		}
		return bend * h.Endcap
	case models.DetGEM:
		return h.EMTFBend * h.Endcap
	case models.DetME0:
		return h.EMTFBend
	case models.DetDT:
		if h.Quality >= 4 {
			return clamp(h.EMTFBend, -512, 511)
		}
		return 0
	default:
		return 0
	}
}

// OldBend reproduces the legacy (pre-rescale/pre-flattening) bend value,
// kept on ProcessedHit for bookkeeping but unused downstream.
func OldBend(h models.RawHit) int {
	switch h.Type {
	case models.DetCSC:
		clct := h.Pattern
		if clct < 0 || clct >= len(cscBendFlatteningLUT) {
			return 0
		}
		return cscBendFlatteningLUT[clct]
	case models.DetGEM:
		return h.EMTFBend * h.Endcap
	case models.DetME0:
		return h.EMTFBend
	case models.DetDT:
		return h.EMTFBend
	default:
		return 0
	}
}

// MedianInt returns the median of an integer sample. For an even-length
// sample it returns the lower of the two middle values (ties resolved low)
// rather than averaging, so the result stays an exact integer theta unit.
func MedianInt(xs []int) int {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]int, n)
	copy(sorted, xs)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	mid := n / 2
	if n%2 == 0 {
		return sorted[mid-1]
	}
	return sorted[mid]
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
