package api

import (
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rawblock/emtf-trigger/internal/bank"
	"github.com/rawblock/emtf-trigger/internal/db"
	"github.com/rawblock/emtf-trigger/internal/pipeline"
	"github.com/rawblock/emtf-trigger/pkg/models"
)

// maxEventsPerRun caps a single /runs request's event batch to prevent
// runaway resource exhaustion from an unconstrained request body.
const maxEventsPerRun = 50_000

type APIHandler struct {
	dbStore  *db.PostgresStore
	pipeline *pipeline.Pipeline
	bank     *bank.Bank
	wsHub    *Hub
}

func SetupRouter(dbStore *db.PostgresStore, p *pipeline.Pipeline, b *bank.Bank, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var
	// Production: ALLOWED_ORIGINS=https://example.org
	// Development: ALLOWED_ORIGINS=http://localhost:3000 (or leave empty for *)
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{dbStore: dbStore, pipeline: p, bank: b, wsHub: wsHub}

	// ── Public endpoints (no auth) ─────────────────────────────
	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
	}

	// ── Protected endpoints (require bearer token if API_AUTH_TOKEN set) ──
	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	// A /runs request can fan out one goroutine per endsec per event, so the
	// protected group is rate-limited; the one limiter covers both routes.
	auth.Use(NewRateLimiter(30, 5).Middleware())
	{
		auth.POST("/runs", handler.handlePostRun)
		auth.GET("/runs/:id/tracks", handler.handleGetRunTracks)
	}

	return r
}

// handlePostRun accepts a batch of events (each a list of raw hits),
// reconstructs tracks for every event through the pipeline, persists them
// under a fresh run id, and broadcasts each event's tracks to any
// subscribed WebSocket client.
//
// POST /api/v1/runs { "events": [ [ {raw hit}, ... ], ... ] }
func (h *APIHandler) handlePostRun(c *gin.Context) {
	var req struct {
		Events [][]models.RawHit `json:"events"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if len(req.Events) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "events must be non-empty"})
		return
	}
	if len(req.Events) > maxEventsPerRun {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":        "too many events in one run",
			"maxEvents":    maxEventsPerRun,
			"hint":         "split into multiple smaller requests",
		})
		return
	}

	ctx := c.Request.Context()

	var runID uuid.UUID
	if h.dbStore != nil {
		var err error
		runID, err = h.dbStore.StartRun(ctx, h.bank.ContentHash, h.pipeline.OMTFInput, h.pipeline.Run2Input)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start run", "details": err.Error()})
			return
		}
	} else {
		runID = uuid.New()
	}

	totalTracks := 0
	for i, rawHits := range req.Events {
		tr, err := h.pipeline.RunEvent(rawHits)
		if err != nil {
			log.Printf("run %s event %d: reconstruction fault: %v", runID, i, err)
			continue
		}
		totalTracks += len(tr)

		if h.dbStore != nil {
			if err := h.dbStore.SaveEventTracks(ctx, runID, i, tr); err != nil {
				log.Printf("run %s event %d: failed to persist tracks: %v", runID, i, err)
			}
		}

		broadcastTracks(h.wsHub, runID, i, tr)
	}

	if h.dbStore != nil {
		if err := h.dbStore.FinishRun(ctx, runID, len(req.Events)); err != nil {
			log.Printf("run %s: failed to finalize run row: %v", runID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"runId":       runID,
		"numEvents":   len(req.Events),
		"totalTracks": totalTracks,
	})
}

// handleGetRunTracks returns every track persisted for a run.
//
// GET /api/v1/runs/:id/tracks
func (h *APIHandler) handleGetRunTracks(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not connected"})
		return
	}

	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	tr, err := h.dbStore.RunTracks(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tracks", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runId": runID, "tracks": tr})
}

// handleHealth returns engine status and capabilities for service discovery.
func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "operational",
		"engine":      "endcap muon trigger reconstruction service",
		"dbConnected": h.dbStore != nil,
		"bank": gin.H{
			"contentHash": hex.EncodeToString(h.bank.ContentHash[:]),
		},
		"omtfInput": h.pipeline.OMTFInput,
		"run2Input": h.pipeline.Run2Input,
	})
}

// broadcastTracks sends one event's reconstructed tracks via the WebSocket
// hub to any subscribed clients.
func broadcastTracks(wsHub *Hub, runID uuid.UUID, eventIndex int, tr []*models.Track) {
	if wsHub == nil || len(tr) == 0 {
		return
	}
	payload := gin.H{
		"type":       "tracks",
		"runId":      runID,
		"eventIndex": eventIndex,
		"tracks":     tr,
	}
	data, _ := json.Marshal(payload)
	wsHub.Broadcast(data)
}
