// Package shadow runs a candidate pattern bank against the same event
// batch as the production bank and scores how much their track output
// diverges, without the candidate ever affecting persisted production
// tracks. A new bank observes in shadow mode before it is promoted.
package shadow

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rawblock/emtf-trigger/internal/pipeline"
	"github.com/rawblock/emtf-trigger/pkg/models"
)

// ShadowRunner evaluates a candidate pipeline against a production
// pipeline over the same raw-hit batches.
type ShadowRunner struct {
	pool            *pgxpool.Pool
	shadowSnapshotID int64
	production      *pipeline.Pipeline
	shadow          *pipeline.Pipeline
	eval            *Evaluator
}

// ShadowResult captures one event's divergence between production and
// shadow bank output.
type ShadowResult struct {
	RunID            uuid.UUID `json:"runId"`
	EventIndex       int       `json:"eventIndex"`
	ProductionTracks int       `json:"productionTracks"`
	ShadowTracks     int       `json:"shadowTracks"`
	ARI              float64   `json:"ari"`
	VI               float64   `json:"vi"`
	SnapshotID       int64     `json:"snapshotId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// NewShadowRunner creates a runner that compares a production and a
// candidate pipeline over the same event batches.
func NewShadowRunner(pool *pgxpool.Pool, shadowSnapshotID int64, production, shadow *pipeline.Pipeline) *ShadowRunner {
	return &ShadowRunner{
		pool:            pool,
		shadowSnapshotID: shadowSnapshotID,
		production:      production,
		shadow:          shadow,
		eval:            NewEvaluator(),
	}
}

// zonesByTrack extracts each track's zone in event order, the label
// sequence the clustering metrics compare.
func zonesByTrack(tr []*models.Track) []int {
	zones := make([]int, len(tr))
	for i, t := range tr {
		zones[i] = t.Zone
	}
	return zones
}

// RunShadowAnalysis reconstructs one event's raw hits with both pipelines
// and scores the divergence between their zone assignments.
func (sr *ShadowRunner) RunShadowAnalysis(ctx context.Context, runID uuid.UUID, eventIndex int, raw []models.RawHit) (*ShadowResult, error) {
	prodTracks, err := sr.production.RunEvent(raw)
	if err != nil {
		return nil, err
	}
	shadowTracks, err := sr.shadow.RunEvent(raw)
	if err != nil {
		return nil, err
	}

	prodZones := zonesByTrack(prodTracks)
	shadowZones := zonesByTrack(shadowTracks)

	n := len(prodZones)
	if len(shadowZones) < n {
		n = len(shadowZones)
	}

	result := &ShadowResult{
		RunID:            runID,
		EventIndex:       eventIndex,
		ProductionTracks: len(prodTracks),
		ShadowTracks:     len(shadowTracks),
		ARI:              sr.eval.AdjustedRandIndex(prodZones[:n], shadowZones[:n]),
		VI:               sr.eval.VariationOfInformation(prodZones[:n], shadowZones[:n]),
		SnapshotID:       sr.shadowSnapshotID,
		CreatedAt:        time.Now(),
	}

	if len(prodTracks) != len(shadowTracks) {
		log.Printf("[Shadow] event %d: track count diverges prod=%d shadow=%d ari=%.3f vi=%.3f",
			eventIndex, result.ProductionTracks, result.ShadowTracks, result.ARI, result.VI)
	}

	if sr.pool != nil {
		if err := sr.persistShadowResult(ctx, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (sr *ShadowRunner) persistShadowResult(ctx context.Context, result *ShadowResult) error {
	sql := `INSERT INTO shadow_results
		(run_id, event_index, production_tracks, shadow_tracks, ari, vi, snapshot_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := sr.pool.Exec(ctx, sql,
		result.RunID,
		result.EventIndex,
		result.ProductionTracks,
		result.ShadowTracks,
		result.ARI,
		result.VI,
		result.SnapshotID,
		result.CreatedAt,
	)
	return err
}

// GenerateDriftReport computes the average ARI/VI divergence across all
// shadow results recorded for this runner's snapshot.
func (sr *ShadowRunner) GenerateDriftReport(ctx context.Context) (totalEvents int, avgARI, avgVI float64, err error) {
	sql := `SELECT
		COUNT(*) AS total,
		COALESCE(AVG(ari), 0) AS avg_ari,
		COALESCE(AVG(vi), 0) AS avg_vi
	FROM shadow_results WHERE snapshot_id = $1`

	row := sr.pool.QueryRow(ctx, sql, sr.shadowSnapshotID)
	err = row.Scan(&totalEvents, &avgARI, &avgVI)
	return
}
