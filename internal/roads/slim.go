package roads

import (
	"github.com/rawblock/emtf-trigger/internal/bank"
	"github.com/rawblock/emtf-trigger/internal/geometry"
	"github.com/rawblock/emtf-trigger/pkg/models"
)

// Slim reduces a cleaned road to at most one hit per layer: for each
// layer, the (hit1, hit2) pair minimizing (dtheta, dphi) lexicographically
// picks hit1 as the layer's sole surviving hit.
func Slim(b *bank.Bank, road *models.Road) *models.Road {
	ipt, ieta := road.ID.IPT, road.ID.IEta

	tmpPhi := road.ID.IPhi * 32
	tmpTheta := road.ThetaMedian

	hitsByLayer := make([][]*models.ProcessedHit, geometry.NLayers)
	for _, h := range road.Hits {
		hitsByLayer[h.Layer] = append(hitsByLayer[h.Layer], h)
	}

	bestPhi := make([]int, geometry.NLayers)
	bestTheta := make([]int, geometry.NLayers)
	for l := range bestPhi {
		bestPhi[l] = tmpPhi
		bestTheta[l] = tmpTheta
	}

	primMatch := func(l int) int { return int(b.PrimMatch(ipt, ieta, l)) }

	bestME11 := tmpPhi + primMatch(0)
	bestME12 := tmpPhi + primMatch(1)
	var anchor int
	if ieta >= 5 {
		anchor = bestME12
	} else {
		anchor = bestME11
	}
	bestPhi[0] = bestME11
	bestPhi[1] = bestME12
	bestPhi[2] = anchor + primMatch(2)
	bestPhi[3] = anchor + primMatch(3)
	bestPhi[4] = anchor + primMatch(4)

	slimHits := make([]*models.ProcessedHit, 0, geometry.NLayers)

	for layer := 0; layer < geometry.NLayers; layer++ {
		candidates := hitsByLayer[layer]
		if len(candidates) == 0 {
			continue
		}

		meanDphi := primMatch(layer)
		partner := geometry.LayerPartner(layer, ieta)
		partnerHits := hitsByLayer[partner]

		var best *models.ProcessedHit
		var bestDTheta, bestDPhi int
		haveBest := false

		for _, hit1 := range candidates {
			if len(partnerHits) > 0 {
				for _, hit2 := range partnerHits {
					dphi := abs((hit1.EMTFPhi - hit2.EMTFPhi) - meanDphi)
					dtheta := abs(hit1.EMTFTheta - tmpTheta)
					if !haveBest || less(dtheta, dphi, bestDTheta, bestDPhi) {
						best, bestDTheta, bestDPhi, haveBest = hit1, dtheta, dphi, true
					}
				}
			} else {
				dphi := abs((hit1.EMTFPhi - bestPhi[partner]) - meanDphi)
				dtheta := abs(hit1.EMTFTheta - tmpTheta)
				if !haveBest || less(dtheta, dphi, bestDTheta, bestDPhi) {
					best, bestDTheta, bestDPhi, haveBest = hit1, dtheta, dphi, true
				}
			}
		}

		// Later layers pair against the already-slimmed partner list, so
		// the winner replaces the layer's whole candidate set.
		hitsByLayer[layer] = []*models.ProcessedHit{best}
		bestPhi[layer] = best.EMTFPhi
		bestTheta[layer] = best.EMTFTheta
		slimHits = append(slimHits, best)
	}

	return &models.Road{
		ID:          road.ID,
		Hits:        slimHits,
		Mode:        road.Mode,
		Quality:     road.Quality,
		SortCode:    road.SortCode,
		ThetaMedian: road.ThetaMedian,
	}
}

// less reports whether (dtheta1,dphi1) sorts before (dtheta2,dphi2) under
// the lexicographic (dtheta, dphi) minimization rule.
func less(dtheta1, dphi1, dtheta2, dphi2 int) bool {
	if dtheta1 != dtheta2 {
		return dtheta1 < dtheta2
	}
	return dphi1 < dphi2
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
