package shadow

import (
	"math"

	"github.com/rawblock/emtf-trigger/internal/metrics"
)

// Evaluator scores how much a candidate pattern bank's per-event zone
// assignments diverge from the production bank's, using contingency-table
// clustering metrics.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// AdjustedRandIndex compares the production bank's per-track zone
// assignment against the shadow bank's, over the same ordered track
// sequence. Both slices must be the same length and in the same order
// (e.g. one entry per surviving track index in the shared event batch).
func (e *Evaluator) AdjustedRandIndex(prodZones, shadowZones []int) float64 {
	return metrics.AdjustedRandIndex(prodZones, shadowZones)
}

// VariationOfInformation is the companion information-theoretic distance
// for the same comparison.
func (e *Evaluator) VariationOfInformation(prodZones, shadowZones []int) float64 {
	return metrics.VariationOfInformation(prodZones, shadowZones)
}

// Entropy calculates the Shannon entropy of a partition.
func (e *Evaluator) Entropy(clusterCounts map[int]int, total int) float64 {
	var ent float64
	for _, count := range clusterCounts {
		p := float64(count) / float64(total)
		if p > 0 {
			ent -= p * math.Log2(p)
		}
	}
	return ent
}
