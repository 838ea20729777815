package tagger

import (
	"context"

	"tiletagger/internal/models"
	"tiletagger/internal/store"
)

// VisionTagger analyzes batches of tile images and returns one tag list per
// image, in input order.
type VisionTagger interface {
	AnalyzeTiles(ctx context.Context, images [][]byte) ([][]models.Tag, error)
	Status() store.ProviderStatus
	Name() string      // Provider name (e.g. "openai", "gemini")
	ModelName() string // Specific model used
}
