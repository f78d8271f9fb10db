package hits

import (
	"testing"

	"github.com/rawblock/emtf-trigger/pkg/models"
)

func cscHit(station, ring, endcap, sector, bx, phi int) models.RawHit {
	return models.RawHit{
		Type: models.DetCSC, Station: station, Ring: ring,
		Endcap: endcap, Sector: sector, BX: bx, EMTFPhi: phi, EMTFTheta: 20,
		Wire: 5,
	}
}

func TestProcess_DropsIllegitBX(t *testing.T) {
	// A CSC hit with bx=2 is not legit (only -1/0 allowed) and must never
	// reach a ProcessedHit.
	raw := []models.RawHit{
		cscHit(1, 1, 1, 1, 2, 1000),
	}
	res, err := Process(raw, false)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	for endsec, hs := range res.BySector {
		if len(hs) != 0 {
			t.Errorf("endsec %d: expected no processed hits, got %d", endsec, len(hs))
		}
	}
}

func TestProcess_SingleHitSectorSurvives(t *testing.T) {
	// A lone station-1 CSC hit sets the single-hit bit (bit 3) on its
	// sector's mode, which alone is enough to keep the sector (isSingleHit).
	raw := []models.RawHit{
		cscHit(1, 1, 1, 3, 0, 1000),
	}
	res, err := Process(raw, false)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	endsec := raw[0].Endsec()
	if len(res.BySector[endsec]) != 1 {
		t.Fatalf("expected 1 processed hit in endsec %d, got %d", endsec, len(res.BySector[endsec]))
	}
	if res.BySector[endsec][0].Layer != 0 {
		t.Errorf("expected ME1/1 hit to map to layer 0, got %d", res.BySector[endsec][0].Layer)
	}
}

func TestProcess_Run2DropsIRPCAndOMTFRegions(t *testing.T) {
	// station 1 also contributes a single-hit bit from the CSC hit below,
	// so the sector isn't dropped outright and the RPC filtering can be
	// observed directly.
	cscAnchor := cscHit(1, 1, 1, 5, 0, 1000)
	rpcOMTF := models.RawHit{Type: models.DetRPC, Station: 1, Ring: 3, Endcap: 1, Sector: 5, BX: 0, EMTFPhi: 500, EMTFTheta: 20}
	rpcIRPC := models.RawHit{Type: models.DetRPC, Station: 3, Ring: 1, Endcap: 1, Sector: 5, BX: 0, EMTFPhi: 500, EMTFTheta: 20}
	rpcOK := models.RawHit{Type: models.DetRPC, Station: 2, Ring: 2, Endcap: 1, Sector: 5, BX: 0, EMTFPhi: 500, EMTFTheta: 20}

	raw := []models.RawHit{cscAnchor, rpcOMTF, rpcIRPC, rpcOK}

	res, err := Process(raw, true)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	endsec := cscAnchor.Endsec()
	var sawRPCOMTF, sawRPCIRPC, sawRPCOK bool
	for _, h := range res.BySector[endsec] {
		if h.Raw.Type == models.DetRPC && h.Raw.Station == 1 {
			sawRPCOMTF = true
		}
		if h.Raw.Type == models.DetRPC && h.Raw.Station == 3 {
			sawRPCIRPC = true
		}
		if h.Raw.Type == models.DetRPC && h.Raw.Station == 2 {
			sawRPCOK = true
		}
	}
	if sawRPCOMTF {
		t.Errorf("Run-2 mode should drop the OMTF-region RPC hit (S1/R3)")
	}
	if sawRPCIRPC {
		t.Errorf("Run-2 mode should drop the iRPC-region RPC hit (S3/R1)")
	}
	if !sawRPCOK {
		t.Errorf("Run-2 mode should keep the non-OMTF, non-iRPC RPC hit (S2/R2)")
	}
}

func TestProcess_UnknownLayerIsAFault(t *testing.T) {
	// (DetCSC, station 1, ring 9) sets the single-hit bit (so the sector
	// survives the mode gate) but has no layerLUT entry: the preprocessor
	// must surface this as an assertion-fatal Fault, not a panic or silent drop.
	raw := []models.RawHit{
		cscHit(1, 9, 1, 1, 0, 1000),
	}
	_, err := Process(raw, false)
	if err == nil {
		t.Fatal("expected a Fault for an unmapped (type,station,ring) combination")
	}
	if _, ok := err.(*Fault); !ok {
		t.Errorf("expected *Fault, got %T", err)
	}
}
