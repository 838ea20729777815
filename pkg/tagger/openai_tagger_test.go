package tagger

import (
	"context"
	"errors"
	"testing"

	"tiletagger/internal/models"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock OpenAI Client ---
// Replies are returned in order; the last one repeats once exhausted.
type mockOpenAIClient struct {
	mockResponses []openai.ChatCompletionResponse
	mockError     error
	calls         int
}

func (m *mockOpenAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.calls++
	if m.mockError != nil {
		return openai.ChatCompletionResponse{}, m.mockError
	}
	idx := m.calls - 1
	if idx >= len(m.mockResponses) {
		idx = len(m.mockResponses) - 1
	}
	return m.mockResponses[idx], nil
}

func textResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{
				Message: openai.ChatCompletionMessage{
					Content: content,
				},
			},
		},
	}
}

// --- End Mock OpenAI Client ---

func TestOpenAITagger_AnalyzeTiles_Parsing(t *testing.T) {
	expectedJSON := `{"tiles": [{"tags": [{"category": "terrain", "subcategory": "water", "confidence": 0.9}]}]}`
	mockClient := &mockOpenAIClient{
		mockResponses: []openai.ChatCompletionResponse{textResponse(expectedJSON)},
	}

	tg := NewOpenAITagger(mockClient, "gpt-test", "", nil, 3, nil, nil)

	results, err := tg.AnalyzeTiles(context.Background(), [][]byte{[]byte("png")})
	require.NoError(t, err, "AnalyzeTiles should not return an error for valid JSON")

	require.Len(t, results, 1)
	require.Len(t, results[0], 1)
	assert.Equal(t, "terrain", results[0][0].Category)
	assert.Equal(t, "water", results[0][0].Subcategory)
	assert.Equal(t, 0.9, results[0][0].Confidence)
	assert.Equal(t, 1, mockClient.calls, "a valid reply should not be retried")
}

func TestOpenAITagger_AnalyzeTiles_RetriesCountMismatch(t *testing.T) {
	// First reply has one entry for a two-image request; the retry is correct.
	bad := `{"tiles": [{"tags": []}]}`
	good := `{"tiles": [{"tags": []}, {"tags": [{"category": "object", "subcategory": "tree", "confidence": 0.8}]}]}`
	mockClient := &mockOpenAIClient{
		mockResponses: []openai.ChatCompletionResponse{textResponse(bad), textResponse(good)},
	}

	tg := NewOpenAITagger(mockClient, "gpt-test", "", nil, 3, nil, nil)

	results, err := tg.AnalyzeTiles(context.Background(), [][]byte{[]byte("a"), []byte("b")})
	require.NoError(t, err)
	assert.Equal(t, 2, mockClient.calls, "a count mismatch should trigger one retry")
	require.Len(t, results, 2)
	assert.Empty(t, results[0])
	require.Len(t, results[1], 1)
	assert.Equal(t, "object.tree", results[1][0].Key())
}

func TestOpenAITagger_AnalyzeTiles_InvalidJSONExhaustsAttempts(t *testing.T) {
	mockClient := &mockOpenAIClient{
		mockResponses: []openai.ChatCompletionResponse{textResponse("not json at all")},
	}

	tg := NewOpenAITagger(mockClient, "gpt-test", "", nil, 2, nil, nil)

	_, err := tg.AnalyzeTiles(context.Background(), [][]byte{[]byte("png")})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAnalysisFailed)
	assert.Equal(t, 2, mockClient.calls, "invalid replies should be retried up to maxAttempts")
}

func TestOpenAITagger_AnalyzeTiles_APIErrorNotRetried(t *testing.T) {
	mockClient := &mockOpenAIClient{mockError: errors.New("rate limited")}

	tg := NewOpenAITagger(mockClient, "gpt-test", "", nil, 3, nil, nil)

	_, err := tg.AnalyzeTiles(context.Background(), [][]byte{[]byte("png")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, 1, mockClient.calls, "transport errors should surface immediately")
}

func TestOpenAITagger_AnalyzeTiles_EmptyChoices(t *testing.T) {
	mockClient := &mockOpenAIClient{
		mockResponses: []openai.ChatCompletionResponse{{}},
	}

	tg := NewOpenAITagger(mockClient, "gpt-test", "", nil, 3, nil, nil)

	_, err := tg.AnalyzeTiles(context.Background(), [][]byte{[]byte("png")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAITagger_AnalyzeTiles_EmptyBatch(t *testing.T) {
	mockClient := &mockOpenAIClient{}
	tg := NewOpenAITagger(mockClient, "gpt-test", "", nil, 3, nil, nil)

	results, err := tg.AnalyzeTiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, mockClient.calls, "an empty batch should not hit the API")
}
