// Package tracks implements track production (turning a slim road plus an
// oracle pt prediction into a Track, gated by the pass-trigger predicate)
// and ghost busting (suppressing
// tracks that share a key hit with a higher-ranked track, in any zone).
package tracks

import (
	"math"

	"github.com/rawblock/emtf-trigger/internal/geometry"
	"github.com/rawblock/emtf-trigger/internal/oracle"
	"github.com/rawblock/emtf-trigger/pkg/models"
)

// singleMuModes is the station-mode membership a track's mode must fall
// into before it is even considered for triggering.
var singleMuModes = map[int]bool{11: true, 13: true, 14: true, 15: true}

// modeFromMask derives the track's 4-bit station mask from which layers
// are present in the slim road's oracle mask, not from re-walking the
// road's hits. ME0 + ME1/1 + any(ME2,ME3,ME4) present promotes a
// non-SingleMu mode to 11 (stations 1, 3 and 4).
func modeFromMask(mask oracle.Mask) int {
	present := func(layer int) bool { return !mask[layer] }

	mode := 0
	if present(0) || present(1) || present(5) || present(9) || present(11) {
		mode |= 1 << 3
	}
	if present(2) || present(6) || present(10) {
		mode |= 1 << 2
	}
	if present(3) || present(7) {
		mode |= 1 << 1
	}
	if present(4) || present(8) {
		mode |= 1 << 0
	}

	modeME0 := 0
	if present(11) {
		modeME0 |= 1 << 2
	}
	if present(0) {
		modeME0 |= 1 << 1
	}
	if present(2) || present(3) || present(4) {
		modeME0 |= 1 << 0
	}
	if !singleMuModes[mode] && modeME0 == 7 {
		mode = 11
	}
	return mode
}

// passTrigger reproduces TrackProducer.pass_trigger: a track is kept only
// if its mode is a SingleMu mode and the oracle-predicted ipt bin's quality
// is at most one above the road's own ipt quality (a lower predicted
// quality is not rejected); beyond that, the
// discriminator must clear a threshold that tightens as the predicted pt
// grows, via a cutoff that itself varies by call site (14 GeV at the rate
// stage, discrPtCut — normally 8 GeV — at the track-producer stage).
func passTrigger(roadIPT, mode int, yMeas, yDiscr, discrPtCut float64) bool {
	quality1 := geometry.RoadQuality(roadIPT)
	quality2 := geometry.RoadQuality(geometry.FindPtBin(yMeas))

	if !singleMuModes[mode] || quality2 > quality1+1 {
		return false
	}

	absInvY := math.Abs(1.0 / yMeas)
	switch {
	case absInvY > 14:
		return yDiscr > 0.9136
	case absInvY > discrPtCut:
		return yDiscr > 0.7415
	default:
		return true
	}
}

// chi2FromDiscriminator is an identity mapping:
// a track's chi2 field IS the oracle's discriminator d̂, not a geometric
// residual — ghost busting and the rate/track cuts both key off it.
func chi2FromDiscriminator(yDiscr float64) float64 { return yDiscr }

// Produce turns a slim road plus an oracle prediction into a Track, or nil
// if the road fails the pass-trigger predicate. discrPtCut is the call
// site's discriminator cutoff (14 GeV at the rate stage, 8 GeV — the
// default here — at the track-producer stage).
func Produce(p oracle.Predictor, road *models.Road, discrPtCut float64) *models.Track {
	f, mask := oracle.Encode(road)
	yMeas, yDiscr := p.Predict(f, mask)
	ptRaw, pt, q := oracle.Interpret(yMeas)

	mode := modeFromMask(mask)
	if !passTrigger(road.ID.IPT, mode, yMeas, yDiscr, discrPtCut) {
		return nil
	}

	thetaDeg := geometry.CalcThetaDegFromInt(road.ThetaMedian)
	eta := geometry.CalcEtaFromThetaDeg(thetaDeg, road.ID.Endcap)
	phiLocDeg := geometry.CalcPhiLocDeg(road.ID.IPhi * 32)
	phiDeg := geometry.CalcPhiGlobDeg(phiLocDeg, road.ID.Sector)

	return &models.Track{
		Endcap:    road.ID.Endcap,
		Sector:    road.ID.Sector,
		Hits:      road.Hits,
		Mode:      mode,
		Zone:      road.ID.IEta,
		PtRaw:     ptRaw,
		Pt:        pt,
		Q:         q,
		EMTFPhi:   road.ID.IPhi * 32,
		EMTFTheta: road.ThetaMedian,
		Ndof:      oracle.NDof(mask),
		Chi2:      chi2FromDiscriminator(yDiscr),
		Phi:       phiDeg,
		Eta:       eta,
	}
}

// SignedPt returns the track's charge-signed pt.
func SignedPt(t *models.Track) float64 {
	return math.Copysign(t.Pt, float64(t.Q))
}
