package tracks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/emtf-trigger/internal/oracle"
	"github.com/rawblock/emtf-trigger/pkg/models"
)

// fakePredictor returns fixed (yMeas, yDiscr) regardless of its input,
// letting tests drive Produce's gating logic deterministically.
type fakePredictor struct {
	yMeas, yDiscr float64
}

func (f fakePredictor) Predict(oracle.Features, oracle.Mask) (float64, float64) {
	return f.yMeas, f.yDiscr
}

func maskWithLayers(layers ...int) oracle.Mask {
	var m oracle.Mask
	for l := range m {
		m[l] = true
	}
	for _, l := range layers {
		m[l] = false
	}
	return m
}

func TestModeFromMask_AllFourStationBitsPresent(t *testing.T) {
	mask := maskWithLayers(0, 2, 3, 4) // ME1/1, ME2, ME3, ME4
	if got := modeFromMask(mask); got != 15 {
		t.Errorf("modeFromMask = %d, want 15", got)
	}
}

func TestModeFromMask_ME0ComboPromotesToEleven(t *testing.T) {
	// ME0 (layer 11) + ME1/1 (layer 0) + any of ME2/3/4 (layer 2) promotes
	// the mode to 11 even though the raw presence mask alone wouldn't reach
	// a SingleMu mode.
	mask := maskWithLayers(11, 0, 2)
	if got := modeFromMask(mask); got != 11 {
		t.Errorf("modeFromMask = %d, want 11 (ME0 promotion)", got)
	}
}

func TestPassTrigger_RejectsNonSingleMuMode(t *testing.T) {
	if passTrigger(4, 8, 0.01, 0.99, 8.0) {
		t.Errorf("mode=8 is not a SingleMu mode and must never pass")
	}
}

func TestPassTrigger_LowPtBypassesDiscriminator(t *testing.T) {
	// |1/yMeas| below discrPtCut: the discriminator gate doesn't apply.
	if !passTrigger(4, 15, 0.5, 0.0, 8.0) {
		t.Errorf("a low-pt (high |yMeas|) road within quality tolerance should pass unconditionally")
	}
}

func TestPassTrigger_RateStageThresholdAt14GeV(t *testing.T) {
	// absInvY = 1/0.01 = 100 > 14: needs yDiscr > 0.9136.
	if passTrigger(4, 15, 0.01, 0.90, 8.0) {
		t.Errorf("yDiscr=0.90 must not clear the 0.9136 threshold above 14 GeV")
	}
	if !passTrigger(4, 15, 0.01, 0.95, 8.0) {
		t.Errorf("yDiscr=0.95 should clear the 0.9136 threshold above 14 GeV")
	}
}

func buildSingleMuRoad(ipt int) *models.Road {
	return &models.Road{
		ID:          models.RoadID{Endcap: 1, Sector: 3, IPT: ipt, IEta: 3, IPhi: 50},
		ThetaMedian: 20,
		Hits: []*models.ProcessedHit{
			{Layer: 0, EMTFPhi: 1600, EMTFTheta: 20},
			{Layer: 2, EMTFPhi: 1600, EMTFTheta: 20},
			{Layer: 3, EMTFPhi: 1600, EMTFTheta: 20},
			{Layer: 4, EMTFPhi: 1600, EMTFTheta: 20},
		},
	}
}

func TestProduce_EmitsTrackWhenPassTriggerSucceeds(t *testing.T) {
	road := buildSingleMuRoad(4) // ipt=4 is the centre bin, matching yMeas~0
	p := fakePredictor{yMeas: 0.01, yDiscr: 0.95}

	tr := Produce(p, road, 8.0)
	require.NotNil(t, tr)
	assert.Equal(t, 15, tr.Mode)
	assert.Equal(t, 4, tr.Ndof)
	assert.Equal(t, 0.95, tr.Chi2, "Chi2 is the oracle discriminator, unchanged")
	assert.Equal(t, 1, tr.Q)
}

func TestProduce_ReturnsNilWhenDiscriminatorFailsGate(t *testing.T) {
	road := buildSingleMuRoad(4)
	p := fakePredictor{yMeas: 0.01, yDiscr: 0.5}

	tr := Produce(p, road, 8.0)
	assert.Nil(t, tr, "a road failing the discriminator gate must not produce a track")
}

func TestProduce_ReturnsNilForNonSingleMuMode(t *testing.T) {
	road := &models.Road{
		ID:          models.RoadID{Endcap: 1, Sector: 3, IPT: 4, IEta: 3, IPhi: 50},
		ThetaMedian: 20,
		Hits: []*models.ProcessedHit{
			{Layer: 0, EMTFPhi: 1600, EMTFTheta: 20},
		},
	}
	p := fakePredictor{yMeas: 0.01, yDiscr: 0.99}

	tr := Produce(p, road, 8.0)
	assert.Nil(t, tr, "a single hit (mode=8) never reaches a SingleMu mode")
}
