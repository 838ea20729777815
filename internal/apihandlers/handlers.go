package apihandlers

import (
	"errors"
	"fmt"
	"net/http"

	"tiletagger/internal/app"
	"tiletagger/internal/models"
	"tiletagger/internal/store"
	"tiletagger/internal/tiled"
	"tiletagger/pkg/tagger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type APIHandler struct {
	App *app.App
}

// HealthHandler reports service liveness plus the tagging provider status.
func (h *APIHandler) HealthHandler(c *gin.Context) {
	status := "ok"
	if err := h.App.JobStore.Ping(c.Request.Context()); err != nil {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"provider": h.App.Tagger.Status().String(),
		"model":    h.App.Tagger.ModelName(),
	})
}

// AnalyzeTileRequest identifies one tile of a tileset on disk.
type AnalyzeTileRequest struct {
	Tileset string `json:"tileset" binding:"required"`
	TileID  *int   `json:"tile_id" binding:"required"`
}

// AnalyzeTileHandler analyzes a single tile synchronously.
func (h *APIHandler) AnalyzeTileHandler(c *gin.Context) {
	var req AnalyzeTileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ts, err := tiled.LoadTileset(req.Tileset)
	if err != nil {
		BadRequest(c, fmt.Sprintf("Failed to load tileset: %v", err))
		return
	}
	png, err := ts.TileImage(*req.TileID)
	if err != nil {
		NotFound(c, fmt.Sprintf("Tile %d: %v", *req.TileID, err))
		return
	}

	tags, err := h.App.AnalysisService.AnalyzeImage(c.Request.Context(), png)
	if err != nil {
		Internal(c, fmt.Sprintf("Analysis failed: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": models.TileAnalysis{TileID: *req.TileID, Tags: tags}})
}

// StartTilesetRequest enqueues a whole-tileset analysis.
type StartTilesetRequest struct {
	Tileset string `json:"tileset" binding:"required"`
	Apply   bool   `json:"apply"`
}

// StartTilesetHandler queues a background analysis job and returns its ID.
func (h *APIHandler) StartTilesetHandler(c *gin.Context) {
	var req StartTilesetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	// Fail fast on unreadable tilesets instead of burning a worker attempt.
	if _, err := tiled.LoadTileset(req.Tileset); err != nil {
		BadRequest(c, fmt.Sprintf("Failed to load tileset: %v", err))
		return
	}

	jobID, err := h.App.JobClient.EnqueueTilesetAnalysis(c.Request.Context(), req.Tileset, req.Apply)
	if err != nil {
		Internal(c, fmt.Sprintf("Failed to enqueue analysis: %v", err))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"job_id": jobID.String()}})
}

func (h *APIHandler) jobFromParam(c *gin.Context) (*models.AnalysisJob, bool) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "Invalid job ID: "+c.Param("id"))
		return nil, false
	}
	job, err := h.App.JobStore.GetJob(c.Request.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		NotFound(c, fmt.Sprintf("Job %s not found", jobID))
		return nil, false
	}
	if err != nil {
		Internal(c, fmt.Sprintf("Failed to load job: %v", err))
		return nil, false
	}
	return job, true
}

// TilesetProgressHandler reports how far a queued analysis has come.
func (h *APIHandler) TilesetProgressHandler(c *gin.Context) {
	job, ok := h.jobFromParam(c)
	if !ok {
		return
	}
	resp := gin.H{
		"job_id":    job.JobID.String(),
		"status":    job.Status,
		"processed": job.Processed,
		"total":     job.Total,
	}
	if job.Error != nil {
		resp["error"] = *job.Error
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// TilesetResultsHandler returns the stored per-tile tags of a finished job.
func (h *APIHandler) TilesetResultsHandler(c *gin.Context) {
	job, ok := h.jobFromParam(c)
	if !ok {
		return
	}
	if job.Status != models.JobStatusCompleted && job.Status != models.JobStatusCancelled {
		Conflict(c, fmt.Sprintf("%v: job %s is %s", models.ErrJobNotFinished, job.JobID, job.Status))
		return
	}
	if len(job.Results) == 0 {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": job.Status, "results": []any{}}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"status":  job.Status,
		"results": job.Results,
	}})
}

// TilesetCancelHandler flags a running job so the worker stops at the next
// batch boundary.
func (h *APIHandler) TilesetCancelHandler(c *gin.Context) {
	job, ok := h.jobFromParam(c)
	if !ok {
		return
	}
	switch job.Status {
	case models.JobStatusEnqueued, models.JobStatusProcessing:
		if err := h.App.JobStore.UpdateJobStatus(c.Request.Context(), job.JobID, models.JobStatusCancelRequested, ""); err != nil {
			Internal(c, fmt.Sprintf("Failed to request cancellation: %v", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"job_id": job.JobID.String(), "status": models.JobStatusCancelRequested}})
	case models.JobStatusCancelRequested:
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"job_id": job.JobID.String(), "status": job.Status}})
	default:
		Conflict(c, fmt.Sprintf("Job %s is already %s", job.JobID, job.Status))
	}
}

// CategoriesHandler lists the tag taxonomy.
func (h *APIHandler) CategoriesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.App.Taxonomy})
}

// StatisticsHandler aggregates stored tags across a tileset.
func (h *APIHandler) StatisticsHandler(c *gin.Context) {
	path := c.Query("tileset")
	if path == "" {
		BadRequest(c, "Missing required query parameter: tileset")
		return
	}
	ts, err := tiled.LoadTileset(path)
	if err != nil {
		BadRequest(c, fmt.Sprintf("Failed to load tileset: %v", err))
		return
	}
	tagged, err := ts.AllTileTags()
	if err != nil {
		Internal(c, fmt.Sprintf("Failed to read stored tags: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tagged_tiles": len(tagged),
		"total_tiles":  ts.TileCount,
		"tags":         tagger.CalculateStatistics(tagged),
	}})
}

// SimilarRequest names the reference tile for a similarity search.
type SimilarRequest struct {
	Tileset       string   `json:"tileset" binding:"required"`
	TileID        *int     `json:"tile_id" binding:"required"`
	MinConfidence *float64 `json:"min_confidence"`
}

// SimilarHandler finds tiles whose stored tags overlap the reference tile's.
func (h *APIHandler) SimilarHandler(c *gin.Context) {
	var req SimilarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	ts, err := tiled.LoadTileset(req.Tileset)
	if err != nil {
		BadRequest(c, fmt.Sprintf("Failed to load tileset: %v", err))
		return
	}

	minConfidence := h.App.Config.Similarity.MinConfidence
	if req.MinConfidence != nil {
		minConfidence = *req.MinConfidence
	}

	similar, err := h.App.AnalysisService.FindSimilarTiles(ts, *req.TileID, minConfidence)
	if err != nil {
		BadRequest(c, fmt.Sprintf("Similarity search failed: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tile_id":        *req.TileID,
		"min_confidence": minConfidence,
		"similar":        similar,
	}})
}

// GenerateRequest describes the map to produce from a tagged tileset.
type GenerateRequest struct {
	Tileset     string `json:"tileset" binding:"required"`
	Description string `json:"description" binding:"required"`
	Width       int    `json:"width" binding:"required"`
	Height      int    `json:"height" binding:"required"`
}

// GenerateHandler builds a Tiled map layout from a natural-language
// description and returns it as JSON.
func (h *APIHandler) GenerateHandler(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	ts, err := tiled.LoadTileset(req.Tileset)
	if err != nil {
		BadRequest(c, fmt.Sprintf("Failed to load tileset: %v", err))
		return
	}

	m, err := h.App.MapGenService.Generate(c.Request.Context(), models.MapGenerationRequest{
		Description: req.Description,
		Width:       req.Width,
		Height:      req.Height,
	}, ts, req.Tileset)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			BadRequest(c, err.Error())
			return
		}
		Internal(c, fmt.Sprintf("Map generation failed: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": m})
}

// CostHandler lists recorded AI usage and the running total.
func (h *APIHandler) CostHandler(c *gin.Context) {
	logs, err := h.App.CostService.ListUsage(c.Request.Context(), 100, 0)
	if err != nil {
		Internal(c, fmt.Sprintf("Failed to list usage: %v", err))
		return
	}
	total, err := h.App.CostService.TotalCost(c.Request.Context())
	if err != nil {
		Internal(c, fmt.Sprintf("Failed to total usage: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"total_usd": total, "entries": logs}})
}
