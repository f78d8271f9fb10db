package models

// Track is a reconstructed track candidate: hits, station mode, zone,
// momentum estimate and quality score.
type Track struct {
	Endcap int `json:"endcap"`
	Sector int `json:"sector"`

	Hits []*ProcessedHit `json:"-"`

	Mode int `json:"mode"`
	Zone int `json:"zone"`

	PtRaw float64 `json:"ptRaw"`
	Pt    float64 `json:"pt"`
	Q     int     `json:"q"` // charge sign, +1 or -1

	EMTFPhi   int `json:"emtfPhi"`
	EMTFTheta int `json:"emtfTheta"`

	Ndof int     `json:"ndof"`
	Chi2 float64 `json:"chi2"` // discriminator d̂ from the oracle

	// Phi/Eta are physical-unit projections of EMTFPhi/EMTFTheta, computed
	// via sector- and endcap-dependent affine + arctan conversions.
	Phi float64 `json:"phi"`
	Eta float64 `json:"eta"`
}

// SharesKeyHit reports whether t and other share a (layer, emtf_phi) pair
// on any of the given key layers. Identity for this test is (layer, phi),
// not hit pointer equality.
func (t *Track) SharesKeyHit(other *Track, keyLayers []int) bool {
	keySet := make(map[int]bool, len(keyLayers))
	for _, l := range keyLayers {
		keySet[l] = true
	}
	seen := make(map[[2]int]bool)
	for _, h := range t.Hits {
		if keySet[h.Layer] {
			seen[[2]int{h.Layer, h.EMTFPhi}] = true
		}
	}
	for _, h := range other.Hits {
		if keySet[h.Layer] && seen[[2]int{h.Layer, h.EMTFPhi}] {
			return true
		}
	}
	return false
}
