// Package worker holds the Asynq task handlers for background tileset
// analysis.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tiletagger/internal/models"
	"tiletagger/internal/services"
	"tiletagger/internal/store"
	"tiletagger/internal/tasks"
	"tiletagger/internal/tiled"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

// AnalysisDeps bundles everything the tileset analysis handler needs.
type AnalysisDeps struct {
	Analysis *services.AnalysisService
	JobStore store.JobStore
}

// RegisterHandlers wires the task handlers onto the mux.
func RegisterHandlers(mux *asynq.ServeMux, deps AnalysisDeps) {
	mux.HandleFunc(tasks.TypeTilesetAnalysis, HandleTilesetAnalysis(deps))
}

// HandleTilesetAnalysis processes one queued tileset analysis: load the
// tileset, walk it in batches with progress written to the job store, honor
// cancel requests between batches, persist the results, and optionally write
// the tags back into the tileset file.
func HandleTilesetAnalysis(deps AnalysisDeps) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload store.TilesetAnalysisPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid tileset analysis payload: %w", err)
		}
		jobID, err := uuid.Parse(payload.JobID)
		if err != nil {
			return fmt.Errorf("invalid job id '%s': %w", payload.JobID, err)
		}

		// A cancel can land while the job is still sitting in the queue.
		// Honor it before writing any status, or the processing update
		// would clobber the flag and the job would run to completion.
		if cancelled, err := deps.JobStore.IsCancelRequested(ctx, jobID); err != nil {
			log.Warnf("Failed to check cancel flag for job %s: %v", jobID, err)
		} else if cancelled {
			if err := deps.JobStore.UpdateJobStatus(ctx, jobID, models.JobStatusCancelled, ""); err != nil {
				log.Warnf("Failed to mark job %s cancelled: %v", jobID, err)
			}
			log.Infof("Tileset analysis job %s cancelled before it started", jobID)
			return nil
		}

		log.Infof("Starting tileset analysis job %s for %s", jobID, payload.TilesetPath)
		if err := deps.JobStore.UpdateJobStatus(ctx, jobID, models.JobStatusProcessing, ""); err != nil {
			log.Warnf("Failed to mark job %s processing: %v", jobID, err)
		}

		ts, err := tiled.LoadTileset(payload.TilesetPath)
		if err != nil {
			return failJob(ctx, deps.JobStore, jobID, err)
		}
		if err := deps.JobStore.UpdateJobProgress(ctx, jobID, 0, ts.TileCount); err != nil {
			log.Warnf("Failed to record initial progress for job %s: %v", jobID, err)
		}

		progress := func(processed, total int) {
			if err := deps.JobStore.UpdateJobProgress(ctx, jobID, processed, total); err != nil {
				log.Warnf("Failed to update progress for job %s: %v", jobID, err)
			}
		}
		cancel := func() bool {
			cancelled, err := deps.JobStore.IsCancelRequested(ctx, jobID)
			if err != nil {
				log.Warnf("Failed to check cancel flag for job %s: %v", jobID, err)
				return false
			}
			return cancelled
		}

		results, err := deps.Analysis.AnalyzeTileset(ctx, ts, progress, cancel)
		if errors.Is(err, models.ErrJobCancelled) {
			// Partial results are still worth keeping for the progress view.
			if saveErr := deps.JobStore.SaveJobResults(ctx, jobID, results); saveErr != nil {
				log.Warnf("Failed to save partial results for job %s: %v", jobID, saveErr)
			}
			if err := deps.JobStore.UpdateJobStatus(ctx, jobID, models.JobStatusCancelled, ""); err != nil {
				log.Warnf("Failed to mark job %s cancelled: %v", jobID, err)
			}
			log.Infof("Tileset analysis job %s cancelled", jobID)
			return nil
		}
		if err != nil {
			return failJob(ctx, deps.JobStore, jobID, err)
		}

		if err := deps.JobStore.SaveJobResults(ctx, jobID, results); err != nil {
			return failJob(ctx, deps.JobStore, jobID, err)
		}

		if payload.Apply {
			if err := ts.ApplyAnalyses(results); err != nil {
				return failJob(ctx, deps.JobStore, jobID, err)
			}
			if err := ts.Save(payload.TilesetPath); err != nil {
				return failJob(ctx, deps.JobStore, jobID, err)
			}
			log.Infof("Wrote tags for %d tiles back to %s", len(results), payload.TilesetPath)
		}

		if err := deps.JobStore.UpdateJobStatus(ctx, jobID, models.JobStatusCompleted, ""); err != nil {
			log.Warnf("Failed to mark job %s completed: %v", jobID, err)
		}
		log.Infof("Tileset analysis job %s completed (%d tiles)", jobID, len(results))
		return nil
	}
}

// failJob records the failure on the job row and returns the error so Asynq
// applies its own retry policy.
func failJob(ctx context.Context, js store.JobStore, jobID uuid.UUID, err error) error {
	if updateErr := js.UpdateJobStatus(ctx, jobID, models.JobStatusFailed, err.Error()); updateErr != nil {
		log.Warnf("Failed to mark job %s failed: %v", jobID, updateErr)
	}
	return err
}
