package costtracker

import (
	"context"
	"time"

	"tiletagger/internal/models"
	"tiletagger/internal/store"
)

// CostEvent represents a single AI usage event and its cost.
type CostEvent struct {
	Operation    string // e.g. "tagging", "mapgen"
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	AmountUSD    float64
}

// CostTracker provides methods to record and report costs.
type CostTracker interface {
	RecordCost(ctx context.Context, event CostEvent) error
	TotalCost(ctx context.Context) (float64, error)
}

// New returns a CostTracker persisting events through the usage store.
func New(usage store.UsageStore) CostTracker {
	if usage == nil {
		return &noopCostTracker{}
	}
	return &storeCostTracker{usage: usage}
}

type storeCostTracker struct {
	usage store.UsageStore
}

func (t *storeCostTracker) RecordCost(ctx context.Context, event CostEvent) error {
	return t.usage.RecordUsage(ctx, &models.AIUsageLog{
		Timestamp:    time.Now(),
		ProviderName: event.Provider,
		ServiceType:  event.Operation,
		ModelName:    event.Model,
		InputTokens:  event.InputTokens,
		OutputTokens: event.OutputTokens,
		Cost:         event.AmountUSD,
	})
}

func (t *storeCostTracker) TotalCost(ctx context.Context) (float64, error) {
	return t.usage.TotalCost(ctx)
}

type noopCostTracker struct{}

func (n *noopCostTracker) RecordCost(ctx context.Context, event CostEvent) error { return nil }
func (n *noopCostTracker) TotalCost(ctx context.Context) (float64, error)        { return 0, nil }
