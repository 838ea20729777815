package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Tag is a single descriptive label attached to a tile, as produced by a
// vision model. Category and subcategory come from the taxonomy; confidence
// is the model's score in [0, 1].
type Tag struct {
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Confidence  float64 `json:"confidence"`
}

// Key returns the flattened "category.subcategory" form used in statistics,
// prompts, and similarity matching.
func (t Tag) Key() string {
	return t.Category + "." + t.Subcategory
}

// TileAnalysis is the result of analyzing one tile.
type TileAnalysis struct {
	TileID int   `json:"tile_id"`
	Tags   []Tag `json:"tags"`
}

// TagStatistics aggregates tag usage across a tileset.
type TagStatistics struct {
	TileCount     int     `json:"tile_count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// MapGenerationRequest is the user's request to generate a map layout from a
// natural-language description.
type MapGenerationRequest struct {
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// AnalysisJob mirrors the analysis_jobs table. It tracks one background
// tileset analysis: progress, status, and (once complete) the serialized
// []TileAnalysis results.
type AnalysisJob struct {
	ID          int64           `db:"id"`
	JobID       uuid.UUID       `db:"job_id"` // Asynq task ID
	TilesetPath string          `db:"tileset_path"`
	TaskType    string          `db:"task_type"`
	Queue       string          `db:"queue"`
	Status      string          `db:"status"`
	Processed   int             `db:"processed"`
	Total       int             `db:"total"`
	Results     json.RawMessage `db:"results"`
	Error       *string         `db:"error"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// AIUsageLog represents a record of AI API usage for cost tracking.
type AIUsageLog struct {
	ID           int64      `db:"id"`
	Timestamp    time.Time  `db:"timestamp"`
	ProviderName string     `db:"provider_name"`
	ServiceType  string     `db:"service_type"` // e.g. "tagging", "mapgen"
	ModelName    string     `db:"model_name"`
	InputTokens  int        `db:"input_tokens"`
	OutputTokens int        `db:"output_tokens"`
	Cost         float64    `db:"cost"`
	RelatedJobID *uuid.UUID `db:"related_job_id"` // nullable
}
