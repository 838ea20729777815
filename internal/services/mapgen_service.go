package services

import (
	"context"
	"fmt"
	"sort"

	"tiletagger/internal/config"
	"tiletagger/internal/costtracker"
	"tiletagger/internal/models"
	"tiletagger/internal/tiled"
	"tiletagger/pkg/tagger"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

// MapGenService turns a natural-language description into a Tiled map layout
// using the tags already stored on a tileset. The model places tag labels on
// a grid; the service maps each label to its best-scoring tile.
type MapGenService struct {
	client         tagger.ChatCompletionCreator
	model          string
	promptTemplate string
	maxAttempts    int

	costTracker costtracker.CostTracker
	pricing     map[string]config.PricingInfo
}

func NewMapGenService(client tagger.ChatCompletionCreator, model, promptTemplate string, maxAttempts int, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) *MapGenService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &MapGenService{
		client:         client,
		model:          model,
		promptTemplate: promptTemplate,
		maxAttempts:    maxAttempts,
		costTracker:    costTracker,
		pricing:        pricing,
	}
}

// palette maps each "category.subcategory" label present in the tileset to
// the tile that carries it with the highest confidence.
func buildPalette(ts *tiled.Tileset) (map[string]int, error) {
	tagged, err := ts.AllTileTags()
	if err != nil {
		return nil, err
	}
	best := make(map[string]float64)
	palette := make(map[string]int)
	for id, tags := range tagged {
		for _, tag := range tags {
			key := tag.Key()
			if conf, ok := best[key]; !ok || tag.Confidence > conf || (tag.Confidence == conf && id < palette[key]) {
				best[key] = tag.Confidence
				palette[key] = id
			}
		}
	}
	return palette, nil
}

// Generate asks the model for a width x height grid of tag labels matching
// the description and converts it into a map referencing tilesetSource.
// Replies whose grid does not match the requested bounds are retried up to
// maxAttempts before the error surfaces, as are API and parse failures.
func (s *MapGenService) Generate(ctx context.Context, req models.MapGenerationRequest, ts *tiled.Tileset, tilesetSource string) (*tiled.Map, error) {
	if s.client == nil {
		return nil, fmt.Errorf("map generator is not initialized (missing API key)")
	}
	if req.Width <= 0 || req.Height <= 0 {
		return nil, fmt.Errorf("%w: map bounds %dx%d must be positive", models.ErrValidation, req.Width, req.Height)
	}

	palette, err := buildPalette(ts)
	if err != nil {
		return nil, err
	}
	if len(palette) == 0 {
		return nil, fmt.Errorf("tileset '%s' has no tagged tiles; run analysis first", ts.Name)
	}

	labels := make([]string, 0, len(palette))
	known := make(map[string]bool, len(palette))
	for label := range palette {
		labels = append(labels, label)
		known[label] = true
	}
	sort.Strings(labels)

	prompt := tagger.BuildLayoutPrompt(s.promptTemplate, req.Description, req.Width, req.Height, labels)

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		rows, err := s.requestGrid(ctx, prompt, req.Width, req.Height, known)
		if err != nil {
			lastErr = err
			log.Warnf("Map generation attempt %d/%d failed: %v", attempt, s.maxAttempts, err)
			continue
		}

		tileIDs := make([]int, 0, req.Width*req.Height)
		for _, row := range rows {
			for _, label := range row {
				tileIDs = append(tileIDs, palette[label])
			}
		}

		m := tiled.NewMap(req.Width, req.Height, ts.TileWidth, ts.TileHeight, tilesetSource)
		if err := m.SetLayerData(tileIDs); err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("map generation failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *MapGenService) requestGrid(ctx context.Context, prompt string, width, height int, known map[string]bool) ([][]string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from OpenAI")
	}

	s.recordCost(ctx, resp.Usage)

	return tagger.ParseLayoutGrid(resp.Choices[0].Message.Content, width, height, known)
}

func (s *MapGenService) recordCost(ctx context.Context, usage openai.Usage) {
	if s.costTracker == nil || usage.TotalTokens == 0 {
		return
	}
	priceInfo, ok := s.pricing[s.model]
	if !ok {
		log.Warnf("Pricing info not found for model '%s'. Cannot record cost.", s.model)
		return
	}
	cost := float64(usage.PromptTokens)*priceInfo.InputPerToken +
		float64(usage.CompletionTokens)*priceInfo.OutputPerToken
	event := costtracker.CostEvent{
		Operation:    models.ServiceTypeMapGen,
		Provider:     "openai",
		Model:        s.model,
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
		AmountUSD:    cost,
	}
	if err := s.costTracker.RecordCost(ctx, event); err != nil {
		log.Errorf("Failed to record AI usage log for map generation: %v", err)
	}
}
