// Package generators holds the text-generation provider clients. The
// librarian treats generation as an opaque external collaborator: it is
// called only from the chat orchestrator's final step and the tier-1
// summary side step.
package generators

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
)

var (
	ErrAPIKeyNotSet     = errors.New("API key not set")
	ErrUnsupportedModel = errors.New("unsupported model")
	ErrNoMessages       = errors.New("no messages to generate from")
	ErrAPIRequestFailed = errors.New("API request failed")
	ErrNoCandidates     = errors.New("no candidates in response")
)

var timeout = 60 * time.Second

// GeminiGenerator implements text generation using Google's Gemini API.
type GeminiGenerator struct {
	apiKey     string
	model      string
	httpClient *http.Client
	apiURL     string
	logger     zerolog.Logger
}

// geminiPart is one text part of a Gemini content object.
type geminiPart struct {
	Text string `json:"text"`
}

// geminiContent is one turn of a Gemini conversation.
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// GeminiGenerateRequest represents the request structure for the Gemini generateContent API.
type GeminiGenerateRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

// GeminiGenerateResponse represents the response structure from the Gemini generateContent API.
type GeminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// NewGeminiGenerator creates a new Gemini text generator.
func NewGeminiGenerator(model string) (*GeminiGenerator, error) {
	return NewGeminiGeneratorWithClient(model, nil, "")
}

// NewGeminiGeneratorWithClient creates a new Gemini generator with custom HTTP client and API URL.
func NewGeminiGeneratorWithClient(model string, httpClient *http.Client, apiURL string) (*GeminiGenerator, error) {
	logger := util.NewLogger(zerolog.ErrorLevel)
	apiKey := os.Getenv("GEMINI_API_KEY")
	if strings.EqualFold(apiKey, "") {
		logger.Error().Msg("GEMINI_API_KEY env variable not set")
		return nil, ErrAPIKeyNotSet
	}

	switch model {
	case "gemini-2.0-flash", "gemini-2.0-flash-exp", "gemini-1.5-flash", "gemini-1.5-pro":
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
		apiURL = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", model)
	}

	return &GeminiGenerator{
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
		apiURL:     apiURL,
		logger:     logger,
	}, nil
}

// GenerateText produces prose from a system prompt and an ordered list
// of chat messages.
func (g *GeminiGenerator) GenerateText(
	ctx context.Context,
	systemPrompt string,
	messages []models.ChatMessage,
) (string, error) {
	if len(messages) == 0 {
		g.logger.Warn().Msg("no messages to generate from")
		return "", ErrNoMessages
	}

	request := GeminiGenerateRequest{
		Contents: make([]geminiContent, 0, len(messages)),
	}
	if systemPrompt != "" {
		request.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: systemPrompt}},
		}
	}
	for _, msg := range messages {
		role := "user"
		if msg.Role == "assistant" || msg.Role == "model" {
			role = "model"
		}
		request.Contents = append(request.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		g.logger.Err(err).Msg("failed to marshal request")
		return "", err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.apiURL,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		g.logger.Err(err).Msg("failed to create request")
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Err(err).Msg("failed to make request")
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.Error().Err(err).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		g.logger.Error().Int("status_code", resp.StatusCode).Msg("API request failed")
		return "", ErrAPIRequestFailed
	}

	var response GeminiGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		g.logger.Err(err).Msg("failed to decode response")
		return "", err
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoCandidates
	}

	var builder strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		builder.WriteString(part.Text)
	}

	g.logger.Debug().Str("model", g.model).Msg("Generated text")
	return builder.String(), nil
}

// GetModelName returns the name of the generation model.
func (g *GeminiGenerator) GetModelName() string {
	return g.model
}
