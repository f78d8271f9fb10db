// Package roads implements road cleaning (group formation, local-maximum
// selection, the BX filter, and cross-group suppression) and road slimming
// (one best hit per layer).
package roads

import "github.com/rawblock/emtf-trigger/pkg/models"

// keyLayers are the layers road cleaning and ghost-busting both treat as
// "key" for the shared-hit suppression test: ME1/1, ME1/2, ME0, MB1, MB2.
var keyLayers = []int{0, 1, 11, 12, 13}

// idLess orders RoadIDs for group formation: (endcap, sector, ipt, ieta, iphi).
func idLess(a, b models.RoadID) bool {
	if a.Endcap != b.Endcap {
		return a.Endcap < b.Endcap
	}
	if a.Sector != b.Sector {
		return a.Sector < b.Sector
	}
	if a.IPT != b.IPT {
		return a.IPT < b.IPT
	}
	if a.IEta != b.IEta {
		return a.IEta < b.IEta
	}
	return a.IPhi < b.IPhi
}

func sameGroupKey(a, b models.RoadID) bool {
	return a.Endcap == b.Endcap && a.Sector == b.Sector && a.IPT == b.IPT && a.IEta == b.IEta
}

// group collects roads whose (endcap,sector,ipt,ieta,iphi) sequence is
// strictly contiguous in iphi, after sorting by RoadID.
func group(rs []*models.Road) [][]*models.Road {
	sorted := make([]*models.Road, len(rs))
	copy(sorted, rs)
	insertionSortRoads(sorted)

	var groups [][]*models.Road
	i := 0
	for i < len(sorted) {
		g := []*models.Road{sorted[i]}
		j := i + 1
		for j < len(sorted) && sameGroupKey(sorted[i].ID, sorted[j].ID) &&
			sorted[j].ID.IPhi == g[len(g)-1].ID.IPhi+1 {
			g = append(g, sorted[j])
			j++
		}
		groups = append(groups, g)
		i = j
	}
	return groups
}

func insertionSortRoads(rs []*models.Road) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && idLess(rs[j].ID, rs[j-1].ID); j-- {
			rs[j-1], rs[j] = rs[j], rs[j-1]
		}
	}
}

// localMaximum walks a group's roads from the middle outward and returns
// the first one whose sort_code dominates both of its immediate neighbours
// (edge members compare against only the one neighbour they have). Ties
// count as dominating, so among equally-dominant candidates the first
// reached from the middle wins.
func localMaximum(g []*models.Road) *models.Road {
	n := len(g)
	if n == 0 {
		return nil
	}
	for _, idx := range middleOutIndices(n) {
		keep := true
		if idx-1 >= 0 && g[idx].SortCode < g[idx-1].SortCode {
			keep = false
		}
		if idx+1 < n && g[idx].SortCode < g[idx+1].SortCode {
			keep = false
		}
		if keep {
			return g[idx]
		}
	}
	return g[n/2]
}

// middleOutIndices yields 0..n-1 in the order middle, middle-1, middle+1,
// middle-2, middle+2, ...
func middleOutIndices(n int) []int {
	middle := n / 2
	out := make([]int, 0, n)
	out = append(out, middle)
	for shift := 1; shift <= middle; shift++ {
		if middle-shift >= 0 {
			out = append(out, middle-shift)
		}
		if middle+shift < n {
			out = append(out, middle+shift)
		}
	}
	return out
}

// passesBXFilter implements select_bx_zero: counting each contributing
// layer at most once, #(bx<=-1) <= 2, #(bx<=0) >= 2, and #(bx>0) <= 1.
func passesBXFilter(r *models.Road) bool {
	seenLayers := make(map[int]bool)
	var leMinus1, le0, gt0 int
	for _, h := range r.Hits {
		if seenLayers[h.Layer] {
			continue
		}
		seenLayers[h.Layer] = true
		bx := h.Raw.BX
		if bx <= -1 {
			leMinus1++
		}
		if bx <= 0 {
			le0++
		}
		if bx > 0 {
			gt0++
		}
	}
	return leMinus1 <= 2 && le0 >= 2 && gt0 <= 1
}

// Clean runs road cleaning: group formation, local-maximum selection, the
// BX filter, and cross-group (sibling) suppression. The result order is
// the sort_code-descending survivor order cross-group suppression produces.
func Clean(input []*models.Road) []*models.Road {
	if len(input) == 0 {
		return nil
	}

	var survivors []*models.Road
	for _, g := range group(input) {
		rep := localMaximum(g)
		rep.IPhiMin = g[0].ID.IPhi
		rep.IPhiMax = g[len(g)-1].ID.IPhi
		survivors = append(survivors, rep)
	}

	var bxOK []*models.Road
	for _, r := range survivors {
		if passesBXFilter(r) {
			bxOK = append(bxOK, r)
		}
	}
	if len(bxOK) == 0 {
		return nil
	}

	sortDescending(bxOK)

	var kept []*models.Road
	for _, r := range bxOK {
		keep := true
		for _, acc := range kept {
			if r.ID.Endcap == acc.ID.Endcap && r.ID.Sector == acc.ID.Sector &&
				acc.IPhiMax+2 >= r.IPhiMin && acc.IPhiMin-2 <= r.IPhiMax {
				keep = false
				break
			}
		}
		if keep {
			for _, acc := range kept {
				if r.SharesKeyHit(acc, keyLayers) {
					keep = false
					break
				}
			}
		}
		if keep {
			kept = append(kept, r)
		}
	}
	return kept
}

func sortDescending(rs []*models.Road) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && rs[j-1].SortCode < rs[j].SortCode; j-- {
			rs[j-1], rs[j] = rs[j], rs[j-1]
		}
	}
}
