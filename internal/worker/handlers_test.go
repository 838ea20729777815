package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"tiletagger/internal/models"
	"tiletagger/internal/services"
	"tiletagger/internal/store"
	"tiletagger/internal/tasks"
	"tiletagger/internal/tiled"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock vision tagger ---
type stubTagger struct {
	tags  []models.Tag
	err   error
	calls int
}

func (s *stubTagger) AnalyzeTiles(ctx context.Context, images [][]byte) ([][]models.Tag, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]models.Tag, len(images))
	for i := range images {
		out[i] = s.tags
	}
	return out, nil
}

func (s *stubTagger) Status() store.ProviderStatus { return store.ProviderStatusActive }
func (s *stubTagger) Name() string                 { return "stub" }
func (s *stubTagger) ModelName() string            { return "stub-1" }

// --- Mock job store ---
type memJobStore struct {
	statuses []string
	errMsgs  []string
	progress [][2]int
	results  []models.TileAnalysis

	cancelled        bool
	cancelOnProgress bool // request cancellation once the first batch lands
}

func (m *memJobStore) RecordJobEnqueue(ctx context.Context, params store.JobRecordParams) error {
	return nil
}
func (m *memJobStore) GetJob(ctx context.Context, jobID uuid.UUID) (*models.AnalysisJob, error) {
	return nil, store.ErrNotFound
}
func (m *memJobStore) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status string, errMsg string) error {
	m.statuses = append(m.statuses, status)
	m.errMsgs = append(m.errMsgs, errMsg)
	return nil
}
func (m *memJobStore) UpdateJobProgress(ctx context.Context, jobID uuid.UUID, processed, total int) error {
	m.progress = append(m.progress, [2]int{processed, total})
	if m.cancelOnProgress && processed > 0 {
		m.cancelled = true
	}
	return nil
}
func (m *memJobStore) SaveJobResults(ctx context.Context, jobID uuid.UUID, results []models.TileAnalysis) error {
	m.results = results
	return nil
}
func (m *memJobStore) IsCancelRequested(ctx context.Context, jobID uuid.UUID) (bool, error) {
	return m.cancelled, nil
}
func (m *memJobStore) ListJobs(ctx context.Context, limit, offset int) ([]*models.AnalysisJob, error) {
	return nil, nil
}
func (m *memJobStore) Ping(ctx context.Context) error { return nil }

func writeTestTileset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	const tileSize, cols, rows = 4, 2, 1
	atlas := image.NewRGBA(image.Rect(0, 0, cols*tileSize, rows*tileSize))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, atlas))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "atlas.png"), buf.Bytes(), 0644))

	ts := tiled.Tileset{
		Type:        "tileset",
		Name:        "test",
		Image:       "atlas.png",
		ImageWidth:  cols * tileSize,
		ImageHeight: rows * tileSize,
		TileWidth:   tileSize,
		TileHeight:  tileSize,
		TileCount:   cols * rows,
		Columns:     cols,
	}
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	path := filepath.Join(dir, "test.tsj")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func analysisTask(t *testing.T, jobID uuid.UUID, tilesetPath string, apply bool) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(store.TilesetAnalysisPayload{
		JobID:       jobID.String(),
		TilesetPath: tilesetPath,
		Apply:       apply,
	})
	require.NoError(t, err)
	return asynq.NewTask(tasks.TypeTilesetAnalysis, payload)
}

func newDeps(js *memJobStore, tg *stubTagger) AnalysisDeps {
	return AnalysisDeps{
		Analysis: services.NewAnalysisService(services.AnalysisServiceDeps{
			Tagger:    tg,
			BatchSize: 16,
			Threshold: 0.5,
		}),
		JobStore: js,
	}
}

func TestHandleTilesetAnalysis_Completes(t *testing.T) {
	path := writeTestTileset(t)
	js := &memJobStore{}
	tg := &stubTagger{tags: []models.Tag{{Category: "terrain", Subcategory: "ground", Confidence: 0.9}}}

	handler := HandleTilesetAnalysis(newDeps(js, tg))
	err := handler(context.Background(), analysisTask(t, uuid.New(), path, false))
	require.NoError(t, err)

	assert.Equal(t, []string{models.JobStatusProcessing, models.JobStatusCompleted}, js.statuses)
	require.Len(t, js.results, 2)
	assert.Equal(t, "terrain.ground", js.results[0].Tags[0].Key())
	assert.NotEmpty(t, js.progress)
	assert.Equal(t, [2]int{2, 2}, js.progress[len(js.progress)-1])
}

func TestHandleTilesetAnalysis_ApplyWritesTagsBack(t *testing.T) {
	path := writeTestTileset(t)
	js := &memJobStore{}
	tg := &stubTagger{tags: []models.Tag{{Category: "terrain", Subcategory: "water", Confidence: 0.8}}}

	handler := HandleTilesetAnalysis(newDeps(js, tg))
	require.NoError(t, handler(context.Background(), analysisTask(t, uuid.New(), path, true)))

	reloaded, err := tiled.LoadTileset(path)
	require.NoError(t, err)
	tags, err := reloaded.TileTags(0)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "terrain.water", tags[0].Key())
}

func TestHandleTilesetAnalysis_CancelRequestedBeforeStart(t *testing.T) {
	// A cancel that lands while the job is still enqueued must stick: the
	// handler may not overwrite it with "processing" and run anyway.
	path := writeTestTileset(t)
	js := &memJobStore{cancelled: true}
	tg := &stubTagger{tags: []models.Tag{{Category: "terrain", Subcategory: "ground", Confidence: 0.9}}}

	handler := HandleTilesetAnalysis(newDeps(js, tg))
	err := handler(context.Background(), analysisTask(t, uuid.New(), path, false))
	require.NoError(t, err, "a cancelled job is not a task failure")

	assert.Equal(t, []string{models.JobStatusCancelled}, js.statuses)
	assert.Zero(t, tg.calls, "no provider calls for a job cancelled before it started")
}

func TestHandleTilesetAnalysis_CancelledMidRun(t *testing.T) {
	path := writeTestTileset(t)
	js := &memJobStore{cancelOnProgress: true}
	tg := &stubTagger{tags: []models.Tag{{Category: "terrain", Subcategory: "ground", Confidence: 0.9}}}

	deps := AnalysisDeps{
		Analysis: services.NewAnalysisService(services.AnalysisServiceDeps{
			Tagger:    tg,
			BatchSize: 1,
			Threshold: 0.5,
		}),
		JobStore: js,
	}
	handler := HandleTilesetAnalysis(deps)
	err := handler(context.Background(), analysisTask(t, uuid.New(), path, false))
	require.NoError(t, err, "a cancelled job is not a task failure")

	assert.Equal(t, []string{models.JobStatusProcessing, models.JobStatusCancelled}, js.statuses)
	assert.Len(t, js.results, 1, "results from before the cancel are kept")
	assert.Equal(t, 1, tg.calls)
}

func TestHandleTilesetAnalysis_ProviderFailure(t *testing.T) {
	path := writeTestTileset(t)
	js := &memJobStore{}
	tg := &stubTagger{err: errors.New("quota exceeded")}

	handler := HandleTilesetAnalysis(newDeps(js, tg))
	err := handler(context.Background(), analysisTask(t, uuid.New(), path, false))
	require.Error(t, err, "the error must surface so Asynq can retry")

	require.NotEmpty(t, js.statuses)
	assert.Equal(t, models.JobStatusFailed, js.statuses[len(js.statuses)-1])
	assert.Contains(t, js.errMsgs[len(js.errMsgs)-1], "quota exceeded")
}

func TestHandleTilesetAnalysis_MissingTileset(t *testing.T) {
	js := &memJobStore{}
	tg := &stubTagger{}

	handler := HandleTilesetAnalysis(newDeps(js, tg))
	err := handler(context.Background(), analysisTask(t, uuid.New(), "/does/not/exist.tsj", false))
	require.Error(t, err)
	assert.Equal(t, models.JobStatusFailed, js.statuses[len(js.statuses)-1])
}

func TestHandleTilesetAnalysis_BadPayload(t *testing.T) {
	handler := HandleTilesetAnalysis(newDeps(&memJobStore{}, &stubTagger{}))
	err := handler(context.Background(), asynq.NewTask(tasks.TypeTilesetAnalysis, []byte("not json")))
	require.Error(t, err)
}
