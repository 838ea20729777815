package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"tiletagger/internal/models"
	"tiletagger/internal/store"
	"tiletagger/internal/tiled"
	"tiletagger/pkg/tagger"

	log "github.com/sirupsen/logrus"
)

// ProgressFunc receives (processed, total) after every batch.
type ProgressFunc func(processed, total int)

// CancelFunc is polled between batches; returning true stops the walk.
type CancelFunc func() bool

// AnalysisService runs the tagging pipeline: walk a tileset in batches,
// serve repeats from the cache, send the rest to the vision provider, filter
// the returned confidences, and hand back one result per tile.
type AnalysisService struct {
	tagger            tagger.VisionTagger
	cache             store.CacheStore
	batchSize         int
	threshold         float64
	adaptiveThreshold bool
}

type AnalysisServiceDeps struct {
	Tagger            tagger.VisionTagger
	Cache             store.CacheStore // optional
	BatchSize         int
	Threshold         float64
	AdaptiveThreshold bool
}

func NewAnalysisService(deps AnalysisServiceDeps) *AnalysisService {
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	return &AnalysisService{
		tagger:            deps.Tagger,
		cache:             deps.Cache,
		batchSize:         batchSize,
		threshold:         deps.Threshold,
		adaptiveThreshold: deps.AdaptiveThreshold,
	}
}

// cacheKey identifies a tile by the SHA-256 of its PNG bytes, so identical
// tiles share cache entries across tilesets and re-runs.
func cacheKey(png []byte) string {
	sum := sha256.Sum256(png)
	return hex.EncodeToString(sum[:])
}

// filter applies the confidence threshold (adaptive if configured) plus the
// best-tag fallback to one tile's raw tags.
func (s *AnalysisService) filter(tags []models.Tag) []models.Tag {
	threshold := s.threshold
	if s.adaptiveThreshold {
		threshold = tagger.AdaptiveThreshold(tags, s.threshold)
	}
	return tagger.FilterTags(tags, threshold)
}

// AnalyzeImage analyzes a single tile image.
func (s *AnalysisService) AnalyzeImage(ctx context.Context, png []byte) ([]models.Tag, error) {
	key := cacheKey(png)
	if s.cache != nil {
		if tags, ok, err := s.cache.GetCachedTags(ctx, key); err != nil {
			log.Warnf("Tag cache read failed: %v", err)
		} else if ok {
			log.Debugf("Cache hit for tile image %s", key[:12])
			return tags, nil
		}
	}

	raw, err := s.tagger.AnalyzeTiles(ctx, [][]byte{png})
	if err != nil {
		return nil, err
	}
	if len(raw) != 1 {
		return nil, fmt.Errorf("%w: provider returned %d results for one image", models.ErrAnalysisFailed, len(raw))
	}
	tags := s.filter(raw[0])

	if s.cache != nil {
		if err := s.cache.PutCachedTags(ctx, key, tags); err != nil {
			log.Warnf("Tag cache write failed: %v", err)
		}
	}
	return tags, nil
}

// AnalyzeTileset analyzes every tile in the tileset, batchSize tiles per
// provider call. progress and cancel may be nil. When cancel fires, the
// results gathered so far are returned with ErrJobCancelled.
func (s *AnalysisService) AnalyzeTileset(ctx context.Context, ts *tiled.Tileset, progress ProgressFunc, cancel CancelFunc) ([]models.TileAnalysis, error) {
	images, err := ts.TileImages()
	if err != nil {
		return nil, fmt.Errorf("failed to slice tileset images: %w", err)
	}
	total := len(images)
	results := make([]models.TileAnalysis, 0, total)

	for start := 0; start < total; start += s.batchSize {
		if cancel != nil && cancel() {
			log.Infof("Tileset analysis cancelled after %d/%d tiles", start, total)
			return results, models.ErrJobCancelled
		}

		end := start + s.batchSize
		if end > total {
			end = total
		}
		batch := images[start:end]

		// Serve cached tiles first; only the misses go to the provider.
		batchTags := make([][]models.Tag, len(batch))
		var missImages [][]byte
		var missIdx []int
		for i, img := range batch {
			if s.cache != nil {
				if tags, ok, err := s.cache.GetCachedTags(ctx, cacheKey(img)); err == nil && ok {
					batchTags[i] = tags
					continue
				}
			}
			missImages = append(missImages, img)
			missIdx = append(missIdx, i)
		}

		if len(missImages) > 0 {
			raw, err := s.tagger.AnalyzeTiles(ctx, missImages)
			if err != nil {
				return results, fmt.Errorf("batch starting at tile %d: %w", start, err)
			}
			for j, tags := range raw {
				i := missIdx[j]
				filtered := s.filter(tags)
				batchTags[i] = filtered
				if s.cache != nil {
					if err := s.cache.PutCachedTags(ctx, cacheKey(batch[i]), filtered); err != nil {
						log.Warnf("Tag cache write failed: %v", err)
					}
				}
			}
		}

		for i, tags := range batchTags {
			results = append(results, models.TileAnalysis{TileID: start + i, Tags: tags})
		}
		if progress != nil {
			progress(end, total)
		}
	}
	return results, nil
}

// FindSimilarTiles returns the IDs of tiles in the tileset whose stored tags
// match the given tile's stored tags at or above minConfidence. Both tiles
// must already be tagged.
func (s *AnalysisService) FindSimilarTiles(ts *tiled.Tileset, tileID int, minConfidence float64) ([]int, error) {
	source, err := ts.TileTags(tileID)
	if err != nil {
		return nil, err
	}
	if len(source) == 0 {
		return nil, fmt.Errorf("tile %d has no stored tags; analyze the tileset first", tileID)
	}

	tagged, err := ts.AllTileTags()
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(tagged))
	for id := range tagged {
		if id != tileID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	targets := make([][]models.Tag, len(ids))
	for i, id := range ids {
		targets[i] = tagged[id]
	}

	var similar []int
	for _, idx := range tagger.FindSimilarTags(source, targets, minConfidence) {
		similar = append(similar, ids[idx])
	}
	return similar, nil
}
