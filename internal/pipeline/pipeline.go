// Package pipeline drives one event's hits through the six reconstruction
// stages in order: preprocessing, pattern recognition, road
// cleaning, road slimming, pt assignment, and track production/ghost
// busting. Endsecs are independent once preprocessing has grouped hits by
// endsec, so stages 2-5 fan out one goroutine per endsec.
package pipeline

import (
	"sync"

	"github.com/rawblock/emtf-trigger/internal/bank"
	"github.com/rawblock/emtf-trigger/internal/hits"
	"github.com/rawblock/emtf-trigger/internal/oracle"
	"github.com/rawblock/emtf-trigger/internal/pattern"
	"github.com/rawblock/emtf-trigger/internal/roads"
	"github.com/rawblock/emtf-trigger/internal/tracks"
	"github.com/rawblock/emtf-trigger/pkg/models"
)

// Pipeline bundles the process-lifetime inputs every event reconstruction
// needs: the pattern bank, its matcher cache, and the predictor used for pt
// assignment.
type Pipeline struct {
	Bank      *bank.Bank
	Matcher   *pattern.Matcher
	Predictor oracle.Predictor

	OMTFInput bool
	Run2Input bool

	// DiscrPtCut is the discriminator cutoff passed to the pass-trigger
	// predicate at track-production time (8 GeV by default).
	DiscrPtCut float64
}

// New builds a Pipeline bound to a loaded pattern bank, warming the
// pattern-match cache up front so per-event work never pays the
// first-lookup cost.
func New(b *bank.Bank, p oracle.Predictor, omtfInput, run2Input bool, discrPtCut float64) *Pipeline {
	m := pattern.NewMatcher(b)
	m.Warm()
	return &Pipeline{Bank: b, Matcher: m, Predictor: p, OMTFInput: omtfInput, Run2Input: run2Input, DiscrPtCut: discrPtCut}
}

// endsecToEndcapSector inverts RawHit.Endsec: endsecs [0,6) are endcap +1,
// [6,12) endcap -1, sector = endsec%6 + 1.
func endsecToEndcapSector(endsec int) (endcap, sector int) {
	if endsec < 6 {
		return 1, endsec + 1
	}
	return -1, endsec - 6 + 1
}

// RunEvent reconstructs one event's tracks from its raw hits, end to end.
// A preprocessing Fault aborts only this event; the caller decides whether
// to log or retry.
func (p *Pipeline) RunEvent(raw []models.RawHit) ([]*models.Track, error) {
	// ═══ Stage 1: hit preprocessing ═══════════════════════════════════
	pre, err := hits.Process(raw, p.Run2Input)
	if err != nil {
		return nil, err
	}

	type endsecTracks struct {
		endsec int
		tracks []*models.Track
	}

	results := make([]endsecTracks, 12)
	var wg sync.WaitGroup
	for endsec := 0; endsec < 12; endsec++ {
		sectorHits := pre.BySector[endsec]
		if len(sectorHits) == 0 {
			continue
		}
		wg.Add(1)
		go func(endsec int, sectorHits []*models.ProcessedHit) {
			defer wg.Done()
			endcap, sector := endsecToEndcapSector(endsec)

			// ═══ Stage 2: pattern recognition ══════════════════════
			generated := pattern.Recognize(p.Matcher, sectorHits, endcap, sector, p.OMTFInput)

			// ═══ Stage 3: road cleaning ═════════════════════════════
			cleaned := roads.Clean(generated)

			// ═══ Stage 4: road slimming + Stage 5/6: pt assignment
			// and track production ═══════════════════════════════════
			var produced []*models.Track
			for _, road := range cleaned {
				slim := roads.Slim(p.Bank, road)
				if t := tracks.Produce(p.Predictor, slim, p.DiscrPtCut); t != nil {
					produced = append(produced, t)
				}
			}

			results[endsec] = endsecTracks{endsec: endsec, tracks: produced}
		}(endsec, sectorHits)
	}
	wg.Wait()

	var all []*models.Track
	for _, r := range results {
		all = append(all, r.tracks...)
	}

	// Ghost busting runs across the whole event: a duplicate track can
	// land in the same zone from two different sectors' overlap region.
	return tracks.GhostBust(all), nil
}
