// Package db persists run metadata and emitted tracks to PostgreSQL via
// pgx. A run row records which pattern bank (by content hash) and input
// flags produced a batch of tracks, so a later query can confirm which
// bank version is responsible for a given track set.
package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rawblock/emtf-trigger/pkg/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for track persistence")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file.
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Track reconstruction schema initialized")
	return nil
}

// StartRun inserts a new run row and returns its id, to be passed to
// SaveEventTracks for every event in the batch.
func (s *PostgresStore) StartRun(ctx context.Context, bankHash [32]byte, omtfInput, run2Input bool) (uuid.UUID, error) {
	runID := uuid.New()
	sql := `
		INSERT INTO runs (run_id, bank_hash, omtf_input, run2_input)
		VALUES ($1, $2, $3, $4);
	`
	_, err := s.pool.Exec(ctx, sql, runID, bankHash[:], omtfInput, run2Input)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("failed to insert run: %v", err)
	}
	return runID, nil
}

// FinishRun stamps a run's finished_at time and final event count.
func (s *PostgresStore) FinishRun(ctx context.Context, runID uuid.UUID, numEvents int) error {
	sql := `UPDATE runs SET finished_at = NOW(), num_events = $1 WHERE run_id = $2;`
	_, err := s.pool.Exec(ctx, sql, numEvents, runID)
	return err
}

// SaveEventTracks persists one event's produced tracks inside a single
// transaction.
func (s *PostgresStore) SaveEventTracks(ctx context.Context, runID uuid.UUID, eventIndex int, tr []*models.Track) error {
	if len(tr) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insertSQL := `
		INSERT INTO tracks
		(run_id, event_index, endcap, sector, mode, zone, pt_raw, pt, q, emtf_phi, emtf_theta, ndof, chi2, phi_deg, eta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	for _, t := range tr {
		_, err = tx.Exec(ctx, insertSQL,
			runID, eventIndex, t.Endcap, t.Sector, t.Mode, t.Zone,
			t.PtRaw, t.Pt, t.Q, t.EMTFPhi, t.EMTFTheta, t.Ndof, t.Chi2, t.Phi, t.Eta,
		)
		if err != nil {
			return fmt.Errorf("failed to insert track: %v", err)
		}
	}

	return tx.Commit(ctx)
}

// RunTracks fetches every track persisted for a run, ordered by event
// index; the order of tracks within one event is not defined.
func (s *PostgresStore) RunTracks(ctx context.Context, runID uuid.UUID) ([]models.Track, error) {
	sql := `
		SELECT endcap, sector, mode, zone, pt_raw, pt, q, emtf_phi, emtf_theta, ndof, chi2, phi_deg, eta
		FROM tracks WHERE run_id = $1 ORDER BY event_index;
	`
	rows, err := s.pool.Query(ctx, sql, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Track
	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.Endcap, &t.Sector, &t.Mode, &t.Zone, &t.PtRaw, &t.Pt, &t.Q,
			&t.EMTFPhi, &t.EMTFTheta, &t.Ndof, &t.Chi2, &t.Phi, &t.Eta); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// GetPool exposes the connection pool for the shadow runner and other subsystems.
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
