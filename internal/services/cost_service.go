package services

import (
	"context"

	"tiletagger/internal/models"
	"tiletagger/internal/store"
)

// CostService exposes recorded AI usage for the cost command and API.
type CostService struct {
	usage store.UsageStore
}

func NewCostService(usage store.UsageStore) *CostService {
	return &CostService{usage: usage}
}

func (s *CostService) ListUsage(ctx context.Context, limit, offset int) ([]*models.AIUsageLog, error) {
	return s.usage.ListUsage(ctx, limit, offset)
}

func (s *CostService) TotalCost(ctx context.Context) (float64, error) {
	return s.usage.TotalCost(ctx)
}
