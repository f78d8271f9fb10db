package oracle

// sLUTStep is the raw-pt spacing between adjacent s_lut breakpoints (GeV).
const sLUTStep = 0.5

// sLUTPassthroughMax is the raw-pt ceiling below which PtScale passes the
// raw value straight through instead of consulting the LUT.
const sLUTPassthroughMax = 2.0

// sLUT is the calibration curve mapping a track's raw, unscaled pt estimate
// (the oracle's direct 1/|ŷ| output) to the displayed trigger pt in GeV, in
// 0.5 GeV steps over [0, 60).
var sLUT = [120]float64{
	1.8005, 1.5194, 1.5708, 1.8247, 2.1989, 2.6489, 3.1625, 3.7251,
	4.3240, 4.9595, 5.6337, 6.3424, 7.0590, 7.7485, 8.4050, 9.0398,
	9.6598, 10.2800, 10.9236, 11.6060, 12.3216, 13.0521, 13.7887, 14.5427,
	15.2964, 16.0232, 16.7303, 17.4535, 18.2066, 19.0044, 19.8400, 20.6934,
	21.5215, 22.3143, 23.1066, 23.8221, 24.4586, 25.1335, 25.9083, 26.7333,
	27.5310, 28.2623, 28.9778, 29.7226, 30.5507, 31.4670, 32.4541, 33.5263,
	34.5659, 35.5155, 36.4457, 37.4019, 38.3762, 39.3604, 40.3595, 41.3763,
	42.3333, 43.2434, 44.2686, 45.5962, 47.0878, 48.3783, 49.4891, 50.5445,
	51.4431, 52.2846, 53.1180, 53.9492, 54.7793, 55.6090, 56.4384, 57.2676,
	58.0967, 58.9257, 59.7547, 60.5836, 61.4125, 62.2413, 63.0702, 63.8990,
	64.7278, 65.5566, 66.3854, 67.2142, 68.0430, 68.8718, 69.7006, 70.5293,
	71.3581, 72.1869, 73.0157, 73.8444, 74.6732, 75.5020, 76.3307, 77.1595,
	77.9882, 78.8170, 79.6458, 80.4745, 81.3033, 82.1321, 82.9608, 83.7896,
	84.6183, 85.4471, 86.2759, 87.1046, 87.9334, 88.7621, 89.5909, 90.4197,
	91.2484, 92.0772, 92.9059, 93.7347, 94.5635, 95.3922, 96.2210, 97.0497,
}

// PtScale converts a raw pt estimate (GeV, always >= 0) to the calibrated
// trigger pt via the s_lut curve: digitize into a 0.5 GeV bin, clip to the
// last full segment, then linearly interpolate within it. Below 2 GeV the
// raw value passes straight through (the LUT is not trusted at low pt).
func PtScale(rawPt float64) float64 {
	if rawPt <= sLUTPassthroughMax {
		return rawPt
	}

	const nbins = len(sLUT)
	const max = float64(nbins) * sLUTStep

	clipped := rawPt
	if clipped >= max {
		clipped = max - 1e-5
	}
	binx := int(clipped / sLUTStep)
	if binx >= nbins-1 {
		binx = nbins - 2
	}

	x0, x1 := float64(binx)*sLUTStep, float64(binx+1)*sLUTStep
	y0, y1 := sLUT[binx], sLUT[binx+1]
	return (rawPt-x0)/(x1-x0)*(y1-y0) + y0
}
