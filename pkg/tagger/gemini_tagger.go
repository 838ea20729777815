package tagger

import (
	"context"
	"fmt"
	"os"
	"strings"

	"tiletagger/internal/config"
	"tiletagger/internal/costtracker"
	"tiletagger/internal/models"
	"tiletagger/internal/store"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// GeminiTagger labels tile images through the Google Gemini API.
type GeminiTagger struct {
	client         *genai.Client
	model          string
	promptTemplate string
	taxonomy       Taxonomy
	maxAttempts    int

	costTracker costtracker.CostTracker
	pricing     map[string]config.PricingInfo
}

// NewGeminiTagger creates a Gemini-backed vision tagger.
func NewGeminiTagger(ctx context.Context, apiKey, model, promptTemplate string, taxonomy Taxonomy, maxAttempts int, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) (*GeminiTagger, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY") // Fallback to env var
	}
	if apiKey == "" {
		log.Warn("Gemini API key not provided. Gemini tagger will be disabled.")
		return &GeminiTagger{client: nil}, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	log.Infof("Gemini tagger initialized with model %s", model)
	return &GeminiTagger{
		client:         client,
		model:          model,
		promptTemplate: promptTemplate,
		taxonomy:       taxonomy,
		maxAttempts:    maxAttempts,
		costTracker:    costTracker,
		pricing:        pricing,
	}, nil
}

// Name returns the provider name.
func (t *GeminiTagger) Name() string { return "gemini" }

// ModelName returns the specific model identifier.
func (t *GeminiTagger) ModelName() string { return t.model }

// Status returns the operational status of the provider.
func (t *GeminiTagger) Status() store.ProviderStatus {
	if t.client == nil {
		return store.ProviderStatusDisabled
	}
	return store.ProviderStatusActive
}

// AnalyzeTiles sends the whole batch as image parts of one generation
// request, then parses and validates the reply the same way the OpenAI
// tagger does, with the same bounded retry.
func (t *GeminiTagger) AnalyzeTiles(ctx context.Context, images [][]byte) ([][]models.Tag, error) {
	if t.client == nil {
		return nil, fmt.Errorf("Gemini tagger is not initialized (missing API key)")
	}
	if len(images) == 0 {
		return [][]models.Tag{}, nil
	}

	prompt := BuildTaggingPrompt(t.promptTemplate, t.taxonomy, len(images))

	parts := make([]genai.Part, 0, len(images)+1)
	parts = append(parts, genai.Text(prompt))
	for _, img := range images {
		parts = append(parts, genai.ImageData("png", img))
	}

	gm := t.client.GenerativeModel(t.model)

	var lastErr error
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		resp, err := gm.GenerateContent(ctx, parts...)
		if err != nil {
			return nil, fmt.Errorf("gemini content generation failed: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, fmt.Errorf("no candidates returned from Gemini")
		}

		t.recordCost(ctx, resp.UsageMetadata)

		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}

		results, err := ParseTileTags(sb.String(), len(images), t.taxonomy)
		if err == nil {
			return results, nil
		}
		lastErr = err
		log.Warnf("Tagging attempt %d/%d rejected: %v", attempt, t.maxAttempts, err)
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", models.ErrAnalysisFailed, t.maxAttempts, lastErr)
}

func (t *GeminiTagger) recordCost(ctx context.Context, usage *genai.UsageMetadata) {
	if t.costTracker == nil || usage == nil {
		return
	}
	priceInfo, ok := t.pricing[t.model]
	if !ok {
		log.Warnf("Pricing info not found for model '%s'. Cannot record cost.", t.model)
		return
	}
	cost := float64(usage.PromptTokenCount)*priceInfo.InputPerToken +
		float64(usage.CandidatesTokenCount)*priceInfo.OutputPerToken
	event := costtracker.CostEvent{
		Operation:    models.ServiceTypeTagging,
		Provider:     t.Name(),
		Model:        t.model,
		InputTokens:  int(usage.PromptTokenCount),
		OutputTokens: int(usage.CandidatesTokenCount),
		AmountUSD:    cost,
	}
	if err := t.costTracker.RecordCost(ctx, event); err != nil {
		log.Errorf("Failed to record AI usage log for tagging: %v", err)
	}
}

// Close cleans up the Gemini client resources.
func (t *GeminiTagger) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}

var _ VisionTagger = (*GeminiTagger)(nil)
