package store

import (
	"context"
	"encoding/json"
	"fmt"

	"tiletagger/internal/models"
	"tiletagger/internal/tasks"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

// AsynqJobClient enqueues analysis tasks and records them to the JobStore.
var _ JobClient = (*AsynqJobClient)(nil)

type AsynqJobClient struct {
	client   *asynq.Client
	jobStore JobStore
}

func NewAsynqJobClient(redisAddr, redisPassword string, redisDB int, js JobStore) (*AsynqJobClient, error) {
	if js == nil {
		return nil, fmt.Errorf("JobStore cannot be nil for AsynqJobClient")
	}
	cli := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	return &AsynqJobClient{client: cli, jobStore: js}, nil
}

func (jc *AsynqJobClient) Close() error {
	return jc.client.Close()
}

// Enqueue enqueues a task and records the event to the JobStore.
func (jc *AsynqJobClient) Enqueue(ctx context.Context, task *asynq.Task, tilesetPath string, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if jc.client == nil {
		return nil, fmt.Errorf("AsynqJobClient internal client is not initialized")
	}
	info, err := jc.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return nil, fmt.Errorf("enqueue task type '%s': %w", task.Type(), err)
	}
	log.Debugf("Enqueued task type '%s', id=%s queue=%s", task.Type(), info.ID, info.Queue)

	jobUUID, err := uuid.Parse(info.ID)
	if err != nil {
		// The job is already enqueued; record with a nil UUID rather than fail.
		log.Errorf("Failed to parse Asynq task ID '%s' as UUID: %v", info.ID, err)
	}

	recordParams := JobRecordParams{
		JobID:       jobUUID,
		TaskType:    task.Type(),
		Queue:       info.Queue,
		TilesetPath: tilesetPath,
		Status:      models.JobStatusEnqueued,
	}
	if err := jc.jobStore.RecordJobEnqueue(ctx, recordParams); err != nil {
		log.Errorf("Failed to record job enqueue event for task ID %s: %v", info.ID, err)
	}

	return info, nil
}

// TilesetAnalysisPayload is the JSON payload of a TypeTilesetAnalysis task.
type TilesetAnalysisPayload struct {
	JobID       string `json:"job_id"`
	TilesetPath string `json:"tileset_path"`
	// Apply writes the resulting tags back into the tileset file's tile
	// properties once analysis completes.
	Apply bool `json:"apply"`
}

func (jc *AsynqJobClient) EnqueueTilesetAnalysis(ctx context.Context, tilesetPath string, apply bool) (uuid.UUID, error) {
	jobID := uuid.New()
	payload, err := json.Marshal(TilesetAnalysisPayload{
		JobID:       jobID.String(),
		TilesetPath: tilesetPath,
		Apply:       apply,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal tileset analysis payload: %w", err)
	}
	task := asynq.NewTask(tasks.TypeTilesetAnalysis, payload)
	// The task ID doubles as the job ID so progress lookups need no mapping.
	_, err = jc.Enqueue(ctx, task, tilesetPath, asynq.Queue("analysis"), asynq.TaskID(jobID.String()))
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue tileset analysis for %s: %w", tilesetPath, err)
	}
	return jobID, nil
}
