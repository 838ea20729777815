package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tiletagger/internal/models"
	"tiletagger/internal/store"

	"github.com/google/uuid"
)

// --- AI Usage Logs ---

func (s *StoreImpl) RecordUsage(ctx context.Context, entry *models.AIUsageLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	var relatedJobID interface{}
	if entry.RelatedJobID != nil {
		relatedJobID = entry.RelatedJobID.String()
	}
	query := `
		INSERT INTO ai_usage_logs (timestamp, provider_name, service_type, model_name, input_tokens, output_tokens, cost, related_job_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		entry.Timestamp, entry.ProviderName, entry.ServiceType, entry.ModelName,
		entry.InputTokens, entry.OutputTokens, entry.Cost, relatedJobID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert AI usage log: %w", err)
	}
	entry.ID, _ = res.LastInsertId()
	return nil
}

func (s *StoreImpl) ListUsage(ctx context.Context, limit, offset int) ([]*models.AIUsageLog, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT id, timestamp, provider_name, service_type, model_name, input_tokens, output_tokens, cost, related_job_id
		FROM ai_usage_logs ORDER BY timestamp DESC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list AI usage logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AIUsageLog
	for rows.Next() {
		entry := &models.AIUsageLog{}
		var relatedJobID sql.NullString
		err := rows.Scan(
			&entry.ID, &entry.Timestamp, &entry.ProviderName, &entry.ServiceType,
			&entry.ModelName, &entry.InputTokens, &entry.OutputTokens, &entry.Cost, &relatedJobID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan AI usage log row: %w", err)
		}
		if relatedJobID.Valid {
			if id, err := uuid.Parse(relatedJobID.String); err == nil {
				entry.RelatedJobID = &id
			}
		}
		logs = append(logs, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating AI usage log rows: %w", err)
	}
	return logs, nil
}

func (s *StoreImpl) TotalCost(ctx context.Context) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(cost), 0) FROM ai_usage_logs`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum AI usage cost: %w", err)
	}
	return total, nil
}

// Ensure StoreImpl satisfies the UsageStore interface
var _ store.UsageStore = (*StoreImpl)(nil)
