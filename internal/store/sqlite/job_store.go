package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tiletagger/internal/models"
	"tiletagger/internal/store"

	"github.com/google/uuid"
)

// --- Analysis Job Management ---

func (s *StoreImpl) RecordJobEnqueue(ctx context.Context, params store.JobRecordParams) error {
	query := `
		INSERT INTO analysis_jobs (job_id, tileset_path, task_type, queue, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		params.JobID.String(), params.TilesetPath, params.TaskType, params.Queue, params.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis job %s: %w", params.JobID, err)
	}
	return nil
}

func (s *StoreImpl) GetJob(ctx context.Context, jobID uuid.UUID) (*models.AnalysisJob, error) {
	query := `
		SELECT id, job_id, tileset_path, task_type, queue, status, processed, total, results, error, created_at, updated_at
		FROM analysis_jobs WHERE job_id = ?`

	job := &models.AnalysisJob{}
	var rawJobID string
	var results sql.NullString
	var errMsg sql.NullString

	err := s.db.QueryRowContext(ctx, query, jobID.String()).Scan(
		&job.ID, &rawJobID, &job.TilesetPath, &job.TaskType, &job.Queue,
		&job.Status, &job.Processed, &job.Total, &results, &errMsg,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis job %s: %w", jobID, err)
	}

	job.JobID, err = uuid.Parse(rawJobID)
	if err != nil {
		return nil, fmt.Errorf("invalid job_id '%s' in analysis_jobs: %w", rawJobID, err)
	}
	if results.Valid {
		job.Results = json.RawMessage(results.String)
	}
	if errMsg.Valid {
		job.Error = &errMsg.String
	}
	return job, nil
}

func (s *StoreImpl) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status string, errMsg string) error {
	var query string
	var args []interface{}
	if errMsg != "" {
		query = `UPDATE analysis_jobs SET status = ?, error = ?, updated_at = ? WHERE job_id = ?`
		args = []interface{}{status, errMsg, time.Now(), jobID.String()}
	} else {
		query = `UPDATE analysis_jobs SET status = ?, updated_at = ? WHERE job_id = ?`
		args = []interface{}{status, time.Now(), jobID.String()}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update status for job %s: %w", jobID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *StoreImpl) UpdateJobProgress(ctx context.Context, jobID uuid.UUID, processed, total int) error {
	query := `UPDATE analysis_jobs SET processed = ?, total = ?, updated_at = ? WHERE job_id = ?`
	res, err := s.db.ExecContext(ctx, query, processed, total, time.Now(), jobID.String())
	if err != nil {
		return fmt.Errorf("failed to update progress for job %s: %w", jobID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *StoreImpl) SaveJobResults(ctx context.Context, jobID uuid.UUID, results []models.TileAnalysis) error {
	blob, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal results for job %s: %w", jobID, err)
	}
	query := `UPDATE analysis_jobs SET results = ?, updated_at = ? WHERE job_id = ?`
	res, err := s.db.ExecContext(ctx, query, string(blob), time.Now(), jobID.String())
	if err != nil {
		return fmt.Errorf("failed to save results for job %s: %w", jobID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *StoreImpl) IsCancelRequested(ctx context.Context, jobID uuid.UUID) (bool, error) {
	query := `SELECT status FROM analysis_jobs WHERE job_id = ?`
	var status string
	err := s.db.QueryRowContext(ctx, query, jobID.String()).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, store.ErrNotFound
		}
		return false, fmt.Errorf("failed to check cancel flag for job %s: %w", jobID, err)
	}
	return status == models.JobStatusCancelRequested, nil
}

func (s *StoreImpl) ListJobs(ctx context.Context, limit, offset int) ([]*models.AnalysisJob, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT id, job_id, tileset_path, task_type, queue, status, processed, total, results, error, created_at, updated_at
		FROM analysis_jobs ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.AnalysisJob
	for rows.Next() {
		job := &models.AnalysisJob{}
		var rawJobID string
		var results sql.NullString
		var errMsg sql.NullString
		err := rows.Scan(
			&job.ID, &rawJobID, &job.TilesetPath, &job.TaskType, &job.Queue,
			&job.Status, &job.Processed, &job.Total, &results, &errMsg,
			&job.CreatedAt, &job.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis job row: %w", err)
		}
		job.JobID, _ = uuid.Parse(rawJobID)
		if results.Valid {
			job.Results = json.RawMessage(results.String)
		}
		if errMsg.Valid {
			job.Error = &errMsg.String
		}
		jobs = append(jobs, job)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis job rows: %w", err)
	}
	return jobs, nil
}

// Ensure StoreImpl satisfies the JobStore interface
var _ store.JobStore = (*StoreImpl)(nil)
