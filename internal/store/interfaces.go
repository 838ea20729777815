package store

import (
	"context"

	"tiletagger/internal/models"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// --- Provider Status ---

type ProviderStatus int

const (
	ProviderStatusUnknown  ProviderStatus = iota // Default zero value
	ProviderStatusActive                         // Provider is operational
	ProviderStatusDisabled                       // Provider is not configured or explicitly disabled
)

func (s ProviderStatus) String() string {
	switch s {
	case ProviderStatusActive:
		return "active"
	case ProviderStatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// --- Job Client ---

type JobClient interface {
	Enqueue(ctx context.Context, task *asynq.Task, tilesetPath string, opts ...asynq.Option) (*asynq.TaskInfo, error)
	EnqueueTilesetAnalysis(ctx context.Context, tilesetPath string, apply bool) (uuid.UUID, error)
	Close() error
}

// --- Job Store ---

// JobRecordParams carries the fields recorded when a task is enqueued.
type JobRecordParams struct {
	JobID       uuid.UUID
	TaskType    string
	Queue       string
	TilesetPath string
	Status      string
}

type JobStore interface {
	RecordJobEnqueue(ctx context.Context, params JobRecordParams) error
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.AnalysisJob, error)
	UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status string, errMsg string) error
	UpdateJobProgress(ctx context.Context, jobID uuid.UUID, processed, total int) error
	SaveJobResults(ctx context.Context, jobID uuid.UUID, results []models.TileAnalysis) error
	// IsCancelRequested reports whether a cancel was requested for the job.
	// The worker polls this between batches.
	IsCancelRequested(ctx context.Context, jobID uuid.UUID) (bool, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*models.AnalysisJob, error)

	Ping(ctx context.Context) error
}

// --- Cache Store ---

// CacheStore caches per-tile analysis results keyed by the SHA-256 of the
// tile's PNG bytes, so re-analyzing an unchanged tileset costs nothing.
type CacheStore interface {
	GetCachedTags(ctx context.Context, key string) ([]models.Tag, bool, error)
	PutCachedTags(ctx context.Context, key string, tags []models.Tag) error
	PruneCache(ctx context.Context) error
}

// --- Usage Store ---

type UsageStore interface {
	RecordUsage(ctx context.Context, entry *models.AIUsageLog) error
	ListUsage(ctx context.Context, limit, offset int) ([]*models.AIUsageLog, error)
	TotalCost(ctx context.Context) (float64, error)
}
