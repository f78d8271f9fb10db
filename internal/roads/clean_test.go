package roads

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/emtf-trigger/pkg/models"
)

func hitAt(layer, phi, theta, bx int) *models.ProcessedHit {
	return &models.ProcessedHit{
		Layer:     layer,
		EMTFPhi:   phi,
		EMTFTheta: theta,
		Raw:       models.RawHit{BX: bx},
	}
}

func road(id models.RoadID, sortCode int, hits ...*models.ProcessedHit) *models.Road {
	return &models.Road{ID: id, SortCode: sortCode, Hits: hits}
}

func TestClean_RejectsRoadFailingBXFilter(t *testing.T) {
	// Three distinct layers all at bx=-2: #(bx<=-1)=3 > 2, fails select_bx_zero.
	r := road(models.RoadID{IPhi: 50}, 10,
		hitAt(0, 100, 20, -2), hitAt(1, 101, 20, -2), hitAt(2, 102, 20, -2))

	got := Clean([]*models.Road{r})
	assert.Empty(t, got, "a road with 3 hits at bx<=-1 must fail the BX filter")
}

func TestClean_KeepsRoadPassingBXFilter(t *testing.T) {
	r := road(models.RoadID{IPhi: 50}, 10,
		hitAt(0, 100, 20, 0), hitAt(1, 101, 20, 0))

	got := Clean([]*models.Road{r})
	assert.Len(t, got, 1)
	assert.Equal(t, 50, got[0].ID.IPhi)
}

func TestClean_LocalMaximumPicksHighestSortCodeInGroup(t *testing.T) {
	// A contiguous iphi run (49,50,51) within one (endcap,sector,ipt,ieta)
	// group collapses to its single highest sort_code member.
	base := models.RoadID{Endcap: 1, Sector: 1, IPT: 4, IEta: 3}
	low := base
	low.IPhi = 49
	mid := base
	mid.IPhi = 50
	high := base
	high.IPhi = 51

	rLow := road(low, 5, hitAt(0, 100, 20, 0), hitAt(1, 101, 20, 0))
	rMid := road(mid, 20, hitAt(0, 100, 20, 0), hitAt(1, 101, 20, 0))
	rHigh := road(high, 8, hitAt(0, 100, 20, 0), hitAt(1, 101, 20, 0))

	got := Clean([]*models.Road{rLow, rMid, rHigh})
	assert.Len(t, got, 1)
	assert.Equal(t, 50, got[0].ID.IPhi, "the middle road has the highest sort_code in its group")
}

func TestClean_SuppressesSiblingSharingKeyHit(t *testing.T) {
	// Two non-contiguous roads (different ipt, so different groups, and far
	// enough apart in iphi that their spans never overlap) share a
	// key-layer (layer 0) hit at the same phi: the lower sort_code sibling
	// must still be suppressed on that basis alone.
	idA := models.RoadID{Endcap: 1, Sector: 1, IPT: 4, IEta: 3, IPhi: 50}
	idB := models.RoadID{Endcap: 1, Sector: 1, IPT: 5, IEta: 3, IPhi: 80}

	sharedKeyHit := hitAt(0, 100, 20, 0) // layer 0 is a key layer
	rA := road(idA, 20, sharedKeyHit, hitAt(2, 200, 20, 0))
	rB := road(idB, 10, sharedKeyHit, hitAt(3, 300, 20, 0))

	got := Clean([]*models.Road{rA, rB})
	assert.Len(t, got, 1)
	assert.Equal(t, 20, got[0].SortCode, "the higher sort_code road should survive the key-hit suppression")
}

func TestClean_IsIdempotent(t *testing.T) {
	idA := models.RoadID{Endcap: 1, Sector: 1, IPT: 4, IEta: 3, IPhi: 50}
	idB := models.RoadID{Endcap: 1, Sector: 2, IPT: 4, IEta: 3, IPhi: 80}
	rA := road(idA, 12, hitAt(0, 100, 20, 0), hitAt(1, 101, 20, 0))
	rB := road(idB, 9, hitAt(4, 400, 20, 0), hitAt(5, 500, 20, 0))

	once := Clean([]*models.Road{rA, rB})
	twice := Clean(once)

	assert.Len(t, twice, len(once))
	for i := range once {
		assert.Equal(t, once[i].ID, twice[i].ID)
	}
}
