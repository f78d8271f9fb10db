// Package oracle implements the encode/predict boundary: encoding a slim
// road into the feature vector + presence mask the external regression
// consumes, the decoders that recover a road's (theta_median, zone, ipt)
// from those features, and the pt-scaling LUT. The regression itself
// (Predictor) is an opaque external collaborator; this package only
// defines its interface and a reference implementation.
package oracle

import (
	"math"

	"github.com/rawblock/emtf-trigger/pkg/models"
)

// NLayers mirrors geometry.NLayers without importing geometry, since the
// encoding here is a fixed-width contract with the external oracle.
const NLayers = 16

// perLayerVars is the number of per-layer variables the encoding carries:
// phi, theta, bend, time, ring, fr.
const perLayerVars = 6

// NFeatures is the total feature-vector width: 6 variables per layer plus
// 3 road-level variables (straightness, zone, theta_median).
const NFeatures = NLayers*perLayerVars + 3

// Mask is a per-layer presence mask: Mask[l] is true when layer l has no
// contributing hit (masked/absent), false when present.
type Mask [NLayers]bool

// Features is one slim road's encoded feature vector.
type Features [NFeatures]float64

const (
	idxPhi0   = 0
	idxTheta0 = NLayers * 1
	idxBend0  = NLayers * 2
	idxTime0  = NLayers * 3
	idxRing0  = NLayers * 4
	idxFR0    = NLayers * 5
	idxStraightness = NLayers * 6
	idxZone         = NLayers*6 + 1
	idxThetaMedian  = NLayers*6 + 2
)

// Encode turns a slim road into its feature vector and presence mask. The
// road-level variables are scaled by the exact constants the round-trip
// property names (straightness: (ipt-4)/4, zone: ieta/5, theta_median:
// (theta-3)/83) so DecodeStraightness/DecodeZone/DecodeThetaMedian invert
// this exactly.
func Encode(road *models.Road) (Features, Mask) {
	v := RoadVariables(road)
	mask := MaskFromRoadVars(v)

	var f Features
	for l := 0; l < NLayers; l++ {
		if mask[l] {
			continue
		}
		f[idxPhi0+l] = v[rvPhi*NLayers+l]
		f[idxTheta0+l] = v[rvTheta*NLayers+l]
		f[idxBend0+l] = v[rvBend*NLayers+l]
		f[idxTime0+l] = v[rvTime*NLayers+l]
		f[idxRing0+l] = v[rvRing*NLayers+l]
		f[idxFR0+l] = v[rvFR*NLayers+l]
	}

	f[idxStraightness] = (float64(road.ID.IPT) - 4.) / 4.
	f[idxZone] = float64(road.ID.IEta) / 5.
	f[idxThetaMedian] = (float64(road.ThetaMedian) - 3.) / 83.

	return f, mask
}

// roadLayerVars is the per-layer variable count of the RoadVars wire
// format: phi, theta, bend, quality, time, ring, fr, old_phi, old_bend,
// and a second theta estimate.
const roadLayerVars = 10

// NRoadVars is the width of one road's row in the wire format handed to an
// out-of-process oracle: 10 variables per layer plus (ipt, ieta, iphi).
const NRoadVars = NLayers*roadLayerVars + 3

// RoadVars is the flat, variable-major road record an external encoder
// consumes: variable v of layer l lives at v*16 + l, and the three road
// indices occupy the tail. Layers with no hit carry NaN in every variable
// slot, which is how an encoder derives the presence mask.
type RoadVars [NRoadVars]float64

const (
	rvPhi = iota
	rvTheta
	rvBend
	rvQuality
	rvTime
	rvRing
	rvFR
	rvOldPhi
	rvOldBend
	rvTheta2
)

// RoadVariables packs a slim road into the RoadVars wire format. If a road
// somehow still carries more than one hit on a layer, the first one wins.
func RoadVariables(road *models.Road) RoadVars {
	var v RoadVars
	for i := 0; i < NLayers*roadLayerVars; i++ {
		v[i] = math.NaN()
	}

	filled := [NLayers]bool{}
	for _, h := range road.Hits {
		l := h.Layer
		if filled[l] {
			continue
		}
		filled[l] = true
		v[rvPhi*NLayers+l] = float64(h.EMTFPhi)
		v[rvTheta*NLayers+l] = float64(h.EMTFTheta)
		v[rvBend*NLayers+l] = float64(h.EMTFBend)
		v[rvQuality*NLayers+l] = float64(h.EMTFQuality)
		v[rvTime*NLayers+l] = float64(h.EMTFTime)
		v[rvRing*NLayers+l] = float64(h.Raw.Ring)
		v[rvFR*NLayers+l] = float64(h.Raw.FR)
		v[rvOldPhi*NLayers+l] = float64(h.OldEMTFPhi)
		v[rvOldBend*NLayers+l] = float64(h.OldEMTFBend)
		v[rvTheta2*NLayers+l] = float64(h.EMTFTheta)
	}

	v[NLayers*roadLayerVars+0] = float64(road.ID.IPT)
	v[NLayers*roadLayerVars+1] = float64(road.ID.IEta)
	v[NLayers*roadLayerVars+2] = float64(road.ID.IPhi)
	return v
}

// MaskFromRoadVars derives the per-layer presence mask from a RoadVars row:
// a layer is masked when its phi slot is NaN.
func MaskFromRoadVars(v RoadVars) Mask {
	var mask Mask
	for l := 0; l < NLayers; l++ {
		mask[l] = math.IsNaN(v[rvPhi*NLayers+l])
	}
	return mask
}

// DecodeThetaMedian recovers theta_median from an encoded feature vector.
func DecodeThetaMedian(f Features) int {
	return int(f[idxThetaMedian]*83. + 3. + 0.5)
}

// DecodeZone recovers ieta from an encoded feature vector.
func DecodeZone(f Features) int {
	return int(f[idxZone]*5. + 0.5)
}

// DecodeStraightness recovers ipt from an encoded feature vector.
func DecodeStraightness(f Features) int {
	v := f[idxStraightness]*4. + 4.
	if v >= 0 {
		return int(v + 0.5)
	}
	return -int(-v + 0.5)
}

// NDof counts the present (unmasked) layers.
func NDof(mask Mask) int {
	n := 0
	for _, m := range mask {
		if !m {
			n++
		}
	}
	return n
}
