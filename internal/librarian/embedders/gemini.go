package embedders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/tubefocus/librarian-go/internal/librarian/interfaces"
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
)

// GeminiEmbedder implements embedding using Google's Gemini API. Gemini
// optimizes document and query embeddings differently, so the task type
// is forwarded on every request.
type GeminiEmbedder struct {
	apiKey     string
	model      string
	dimension  int
	maxTokens  int
	httpClient *http.Client
	apiURL     string
	logger     zerolog.Logger
}

// GeminiEmbeddingRequest represents the request structure for the Gemini embedContent API.
type GeminiEmbeddingRequest struct {
	Model    string `json:"model"`
	TaskType string `json:"taskType"`
	Content  struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
}

// GeminiEmbeddingResponse represents the response structure from the Gemini embedContent API.
type GeminiEmbeddingResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// NewGeminiEmbedder creates a new Gemini embedder.
func NewGeminiEmbedder(model string) (*GeminiEmbedder, error) {
	return NewGeminiEmbedderWithClient(model, nil, "")
}

// NewGeminiEmbedderWithClient creates a new Gemini embedder with custom HTTP client and API URL.
func NewGeminiEmbedderWithClient(model string, httpClient *http.Client, apiURL string) (*GeminiEmbedder, error) {
	logger := util.NewLogger(zerolog.ErrorLevel)
	apiKey := os.Getenv("GEMINI_API_KEY")
	if strings.EqualFold(apiKey, "") {
		logger.Error().Msg("GEMINI_API_KEY env variable not set")
		return nil, ErrAPIKeyNotSet
	}

	// Set dimension and max tokens based on model
	var dimension, maxTokens int
	switch model {
	case "text-embedding-004":
		dimension = 768
		maxTokens = 2048
	case "embedding-001":
		dimension = 768
		maxTokens = 2048
	default:
		logger.Error().Str("unsupported model", model).Err(ErrUnsupportedModel)
		return nil, ErrUnsupportedModel
	}

	// Use provided HTTP client or create default one
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	// Use provided API URL or default one
	if apiURL == "" {
		apiURL = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:embedContent", model)
	}

	return &GeminiEmbedder{
		apiKey:     apiKey,
		model:      model,
		dimension:  dimension,
		maxTokens:  maxTokens,
		httpClient: httpClient,
		apiURL:     apiURL,
		logger:     logger,
	}, nil
}

// GenerateEmbedding creates a vector embedding for the given content,
// passing the retrieval task type through to the API.
func (g *GeminiEmbedder) GenerateEmbedding(
	ctx context.Context,
	content string,
	task interfaces.TaskType,
) ([]float32, error) {
	if strings.EqualFold(content, "") {
		g.logger.Warn().Msg("content is empty")
		return nil, ErrContentEmpty
	}

	cleanContent := strings.TrimSpace(content)

	// Prepare the request
	request := GeminiEmbeddingRequest{
		Model:    "models/" + g.model,
		TaskType: geminiTaskType(task),
	}
	request.Content.Parts = []struct {
		Text string `json:"text"`
	}{{Text: cleanContent}}

	requestBody, err := json.Marshal(request)
	if err != nil {
		g.logger.Err(err).Msg("failed to marshal request")
		return nil, err
	}

	// Create HTTP request
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.apiURL,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		g.logger.Err(err).Msg("failed to create request")
		return nil, err
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	// Make the request
	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Err(err).Msg("failed to make request")
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.Error().Err(err).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		g.logger.Error().Int("status_code", resp.StatusCode).Msg("API request failed")
		return nil, ErrAPIRequestFailed
	}

	// Parse the response
	var response GeminiEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		g.logger.Err(err).Msg("failed to decode response")
		return nil, err
	}

	if len(response.Embedding.Values) == 0 {
		return nil, ErrNoEmbeddingData
	}

	g.logger.Debug().Str("model", g.model).Str("task_type", string(task)).Msg("Generated embedding")
	return response.Embedding.Values, nil
}

// GetModelName returns the name of the embedding model.
func (g *GeminiEmbedder) GetModelName() string {
	return g.model
}

// GetDimension returns the dimension of the embedding vectors.
func (g *GeminiEmbedder) GetDimension() int {
	return g.dimension
}

// GetMaxTokens returns the maximum number of tokens this embedder can handle.
func (g *GeminiEmbedder) GetMaxTokens() int {
	return g.maxTokens
}

// geminiTaskType maps the librarian task type onto Gemini's enum.
func geminiTaskType(task interfaces.TaskType) string {
	switch task {
	case interfaces.TaskQuery:
		return "RETRIEVAL_QUERY"
	default:
		return "RETRIEVAL_DOCUMENT"
	}
}
