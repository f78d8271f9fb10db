package oracle

// Predictor is the pt-assignment boundary: given one slim
// road's encoded features, it returns the regression's two raw outputs —
// ŷ (signed inverse-pt) and d̂ (the discriminator). The regression weights
// themselves are an
// external, opaque artifact; this package only exercises the boundary and
// the cuda/cpu split that evaluates it, mirroring the hardware-accelerated/
// fallback split used elsewhere for pattern matching.
type Predictor interface {
	Predict(f Features, mask Mask) (yMeas, yDiscr float64)
}

// minYMeas keeps 1/|ŷ| finite for a regression output near zero.
const minYMeas = 1e-6

// Interpret turns a raw ŷ into the (pt_raw, calibrated pt, charge sign)
// triple: pt_raw = 1/|ŷ|, q = sign(ŷ), pt from the s_lut curve.
func Interpret(yMeas float64) (ptRaw, pt float64, q int) {
	abs := yMeas
	if abs < 0 {
		abs = -abs
	}
	if abs < minYMeas {
		abs = minYMeas
	}
	ptRaw = 1.0 / abs
	pt = PtScale(ptRaw)

	q = 1
	if yMeas < 0 {
		q = -1
	}
	return ptRaw, pt, q
}

// Predict runs the process-wide Predictor (selected at build time by the
// cuda/!cuda tag) and interprets its two outputs. yDiscr is
// returned unchanged — it becomes a track's discriminator/chi2.
func Predict(p Predictor, f Features, mask Mask) (ptRaw, pt float64, q int, yDiscr float64) {
	yMeas, yDiscr := p.Predict(f, mask)
	ptRaw, pt, q = Interpret(yMeas)
	return ptRaw, pt, q, yDiscr
}
