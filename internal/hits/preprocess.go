// Package hits implements the hit preprocessor: legit-hit
// filtering, the per-endsec sector-mode mask, the Run-2 RPC compatibility
// filter, and derived-field computation that turns a RawHit into a
// ProcessedHit. Downstream stages never reach back into the RawHit.
package hits

import (
	"fmt"

	"github.com/rawblock/emtf-trigger/internal/geometry"
	"github.com/rawblock/emtf-trigger/pkg/models"
)

// Fault is returned for an assertion-fatal condition: a logic error
// discovered while processing one event's hits. The caller aborts that
// event only, never the process.
type Fault struct {
	msg string
}

func (f *Fault) Error() string { return f.msg }

func fault(format string, args ...interface{}) *Fault {
	return &Fault{msg: fmt.Sprintf(format, args...)}
}

// muOpenModes and singleHitBit implement the sector-level early-exit gate:
// a sector is worth building roads for only if its mode matches one of the
// MuOpen station patterns, or carries the single-hit (station 1) bit.
var muOpenModes = map[int]bool{
	3: true, 5: true, 6: true, 7: true, 9: true, 10: true, 11: true,
	12: true, 13: true, 14: true, 15: true,
}

func isMuOpen(mode int) bool { return muOpenModes[mode] }
func isSingleHit(mode int) bool { return mode&(1<<3) != 0 }

// isLegit implements is_emtf_legit_hit: CSC/DT bx must be in {-1,0} (else
// bx must be exactly 0), and ME0/DT hits must carry a positive emtf_phi.
func isLegit(h models.RawHit) bool {
	var bxOK bool
	switch h.Type {
	case models.DetCSC, models.DetDT:
		bxOK = h.BX == -1 || h.BX == 0
	default:
		bxOK = h.BX == 0
	}
	if !bxOK {
		return false
	}
	switch h.Type {
	case models.DetME0, models.DetDT:
		return h.EMTFPhi > 0
	default:
		return true
	}
}

// isValidForRun2 drops RPC hits in the iRPC (S3/S4 ring1) and OMTF
// (S1/S2 ring3) regions when Run-2 compatibility mode is active.
func isValidForRun2(h models.RawHit) bool {
	if h.Type != models.DetRPC {
		return true
	}
	isIRPC := (h.Station == 3 || h.Station == 4) && h.Ring == 1
	isOMTF := (h.Station == 1 || h.Station == 2) && h.Ring == 3
	return !isIRPC && !isOMTF
}

// sectorModeBit returns the bit this hit contributes to its endsec's
// 5-bit sector-mode mask: CSC sets bit (4-station); ME0 and DT both count
// toward bit 3 (pseudo-station-1).
func sectorModeBit(h models.RawHit) int {
	switch h.Type {
	case models.DetCSC:
		return 1 << (4 - h.Station)
	case models.DetME0, models.DetDT:
		return 1 << 3
	default:
		return 0
	}
}

// Result is the preprocessor's output: processed hits grouped by endsec,
// plus the sector-mode mask that gated which endsecs were kept.
type Result struct {
	BySector  [12][]*models.ProcessedHit
	SectorMode [12]int
}

// Process runs the full preprocessing stage over one event's raw hits.
// run2Input applies the Run-2 RPC compatibility filter to qualifying
// sectors before derived fields are computed.
func Process(raw []models.RawHit, run2Input bool) (*Result, error) {
	res := &Result{}

	var legit []models.RawHit
	for _, h := range raw {
		if isLegit(h) {
			legit = append(legit, h)
		}
	}

	bySector := make([][]models.RawHit, 12)
	for _, h := range legit {
		endsec := h.Endsec()
		res.SectorMode[endsec] |= sectorModeBit(h)
		bySector[endsec] = append(bySector[endsec], h)
	}

	for endsec := 0; endsec < 12; endsec++ {
		mode := res.SectorMode[endsec]
		if !isMuOpen(mode) && !isSingleHit(mode) {
			continue
		}

		sectorHits := bySector[endsec]
		if run2Input {
			filtered := sectorHits[:0:0]
			for _, h := range sectorHits {
				if isValidForRun2(h) {
					filtered = append(filtered, h)
				}
			}
			sectorHits = filtered
		}

		processed := make([]*models.ProcessedHit, 0, len(sectorHits))
		for _, h := range sectorHits {
			layer := geometry.Layer(h.Type, h.Station, h.Ring)
			if layer == -99 {
				return nil, fault("hit (type=%d station=%d ring=%d) has no assigned layer", h.Type, h.Station, h.Ring)
			}

			theta := geometry.Theta(h)
			ph := &models.ProcessedHit{
				Raw:    h,
				Endsec: endsec,
				Layer:  layer,
				Zones:  geometry.Zones(h.Type, h.Station, h.Ring, theta),

				EMTFPhi:     geometry.Phi(h),
				EMTFTheta:   theta,
				EMTFBend:    geometry.Bend(h),
				EMTFQuality: geometry.Quality(h),
				EMTFTime:    geometry.Time(h),

				OldEMTFPhi:  h.EMTFPhi,
				OldEMTFBend: geometry.OldBend(h),
			}
			processed = append(processed, ph)
		}
		res.BySector[endsec] = processed
	}

	return res, nil
}
