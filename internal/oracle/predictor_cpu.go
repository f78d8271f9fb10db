//go:build !cuda

package oracle

import "log"

// CPUPredictor is the reference Predictor used when the engine is built
// without the 'cuda' tag. It derives ŷ from two encoded road-level
// variables (straightness, zone) and d̂ from the presence mask's ndof,
// without consulting theta_median or the per-layer hit variables; a trained
// external model is free to use the full feature vector.
type CPUPredictor struct{}

// NewPredictor returns the CPU-only Predictor.
func NewPredictor() Predictor {
	log.Println("oracle: hardware acceleration not requested, using CPU predictor")
	return CPUPredictor{}
}

func (CPUPredictor) Predict(f Features, mask Mask) (yMeas, yDiscr float64) {
	straightness := DecodeStraightness(f)
	zone := DecodeZone(f)
	ndof := NDof(mask)

	d := float64(straightness - 4) // signed distance from the centre ipt bin
	// A straighter road (ipt near the centre bin) implies a smaller |q/pt|;
	// the zone term shrinks |ŷ| slightly as the zone index grows (zone 0 is
	// the most forward).
	magnitude := (1.0 + d*d) / (200.0 * (1.0 + 0.05*float64(zone)))
	yMeas = magnitude
	if straightness < 4 {
		yMeas = -yMeas
	}

	// More contributing layers gives the regression more to agree on; this
	// stand-in discriminator simply rewards ndof, saturating near 1.
	yDiscr = 1.0 - 1.0/float64(ndof+1)
	return yMeas, yDiscr
}
