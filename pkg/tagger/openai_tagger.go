package tagger

import (
	"context"
	"encoding/base64"
	"fmt"

	"tiletagger/internal/config"
	"tiletagger/internal/costtracker"
	"tiletagger/internal/models"
	"tiletagger/internal/store"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

// ChatCompletionCreator is the minimal OpenAI client surface the tagger
// needs; tests substitute a mock.
type ChatCompletionCreator interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAITagger labels tile images through the OpenAI vision chat API.
type OpenAITagger struct {
	client         ChatCompletionCreator
	model          string
	promptTemplate string
	taxonomy       Taxonomy
	maxAttempts    int

	costTracker costtracker.CostTracker
	pricing     map[string]config.PricingInfo
}

// NewOpenAITagger creates a tagger using an OpenAI-compatible client.
// maxAttempts bounds the retries when the model's reply fails validation.
func NewOpenAITagger(client ChatCompletionCreator, model, promptTemplate string, taxonomy Taxonomy, maxAttempts int, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) *OpenAITagger {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	return &OpenAITagger{
		client:         client,
		model:          model,
		promptTemplate: promptTemplate,
		taxonomy:       taxonomy,
		maxAttempts:    maxAttempts,
		costTracker:    costTracker,
		pricing:        pricing,
	}
}

// Name returns the provider name.
func (t *OpenAITagger) Name() string { return "openai" }

// ModelName returns the specific model identifier.
func (t *OpenAITagger) ModelName() string { return t.model }

// Status returns the operational status of the provider.
func (t *OpenAITagger) Status() store.ProviderStatus {
	if t.client == nil {
		return store.ProviderStatusDisabled
	}
	return store.ProviderStatusActive
}

// AnalyzeTiles sends one vision request carrying every image in the batch
// and expects one tag list back per image. A reply with the wrong entry
// count or unparseable JSON is retried up to maxAttempts.
func (t *OpenAITagger) AnalyzeTiles(ctx context.Context, images [][]byte) ([][]models.Tag, error) {
	if t.client == nil {
		return nil, fmt.Errorf("OpenAI tagger is not initialized (missing API key)")
	}
	if len(images) == 0 {
		return [][]models.Tag{}, nil
	}

	prompt := BuildTaggingPrompt(t.promptTemplate, t.taxonomy, len(images))

	parts := make([]openai.ChatMessagePart, 0, len(images)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: prompt,
	})
	for _, img := range images {
		dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL,
				Detail: openai.ImageURLDetailLow,
			},
		})
	}

	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		resp, err := t.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("openai chat completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("no choices returned from OpenAI")
		}

		t.recordCost(ctx, resp.Usage)

		results, err := ParseTileTags(resp.Choices[0].Message.Content, len(images), t.taxonomy)
		if err == nil {
			return results, nil
		}
		lastErr = err
		log.Warnf("Tagging attempt %d/%d rejected: %v", attempt, t.maxAttempts, err)
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", models.ErrAnalysisFailed, t.maxAttempts, lastErr)
}

func (t *OpenAITagger) recordCost(ctx context.Context, usage openai.Usage) {
	if t.costTracker == nil || usage.TotalTokens == 0 {
		return
	}
	priceInfo, ok := t.pricing[t.model]
	if !ok {
		log.Warnf("Pricing info not found for model '%s'. Cannot record cost.", t.model)
		return
	}
	cost := float64(usage.PromptTokens)*priceInfo.InputPerToken +
		float64(usage.CompletionTokens)*priceInfo.OutputPerToken
	event := costtracker.CostEvent{
		Operation:    models.ServiceTypeTagging,
		Provider:     t.Name(),
		Model:        t.model,
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
		AmountUSD:    cost,
	}
	if err := t.costTracker.RecordCost(ctx, event); err != nil {
		log.Errorf("Failed to record AI usage log for tagging: %v", err)
	} else {
		log.Debugf("Recorded AI usage: Provider=%s, Model=%s, InputTokens=%d, OutputTokens=%d, Cost=%.8f",
			event.Provider, event.Model, event.InputTokens, event.OutputTokens, event.AmountUSD)
	}
}

var _ VisionTagger = (*OpenAITagger)(nil)
