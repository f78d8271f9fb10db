package main

import (
	"log"

	"github.com/rawblock/emtf-trigger/internal/api"
	"github.com/rawblock/emtf-trigger/internal/bank"
	"github.com/rawblock/emtf-trigger/internal/config"
	"github.com/rawblock/emtf-trigger/internal/db"
	"github.com/rawblock/emtf-trigger/internal/oracle"
	"github.com/rawblock/emtf-trigger/internal/pipeline"
)

func main() {
	log.Println("Starting EMTF track reconstruction engine...")

	cfg := config.Load()

	// ─── Pattern bank ──────────────────────────────────────────────────
	// A missing or malformed bank is configuration-fatal: there is no
	// reconstruction without it.
	patternBank, err := bank.Load(cfg.BankPath)
	if err != nil {
		log.Fatalf("FATAL: failed to load pattern bank %q: %v", cfg.BankPath, err)
	}
	log.Printf("Loaded pattern bank %q (content hash %x)", cfg.BankPath, patternBank.ContentHash[:8])

	predictor := oracle.NewPredictor()
	pipe := pipeline.New(patternBank, predictor, cfg.OMTFInput, cfg.Run2Input, cfg.DiscrPtCutTrack)

	// ─── PostgreSQL persistence (optional) ──────────────────────────────
	var dbStore *db.PostgresStore
	if cfg.DatabaseURL != "" {
		dbStore, err = db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: failed to connect to PostgreSQL, continuing without run persistence: %v", err)
			dbStore = nil
		} else {
			defer dbStore.Close()
			if err := dbStore.InitSchema(); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
		}
	} else {
		log.Println("DATABASE_URL not set — running without run/track persistence")
	}

	// ─── WebSocket hub ───────────────────────────────────────────────────
	wsHub := api.NewHub()
	go wsHub.Run()

	if cfg.APIAuthToken == "" {
		log.Println("API_AUTH_TOKEN not set — protected endpoints are unauthenticated")
	}

	r := api.SetupRouter(dbStore, pipe, patternBank, wsHub)

	log.Printf("Engine listening on :%s (bank=%s omtf=%v run2=%v)\n", cfg.Port, cfg.BankPath, cfg.OMTFInput, cfg.Run2Input)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
