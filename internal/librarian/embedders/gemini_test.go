package embedders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/tubefocus/librarian-go/internal/librarian/interfaces"
)

func TestNewGeminiEmbedder(t *testing.T) {
	// Save original env var
	originalAPIKey := os.Getenv("GEMINI_API_KEY")
	defer os.Setenv("GEMINI_API_KEY", originalAPIKey)

	tests := []struct {
		name        string
		model       string
		apiKey      string
		expectError bool
		expectedDim int
		description string
	}{
		{
			name:        "valid text-embedding-004",
			model:       "text-embedding-004",
			apiKey:      "test-api-key",
			expectError: false,
			expectedDim: 768,
			description: "should create embedder for text-embedding-004",
		},
		{
			name:        "valid embedding-001",
			model:       "embedding-001",
			apiKey:      "test-api-key",
			expectError: false,
			expectedDim: 768,
			description: "should create embedder for embedding-001",
		},
		{
			name:        "unsupported model",
			model:       "not-a-model",
			apiKey:      "test-api-key",
			expectError: true,
			description: "should reject unknown models",
		},
		{
			name:        "missing api key",
			model:       "text-embedding-004",
			apiKey:      "",
			expectError: true,
			description: "should fail without GEMINI_API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("GEMINI_API_KEY", tt.apiKey)

			embedder, err := NewGeminiEmbedder(tt.model)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none: %s", tt.description)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v (%s)", err, tt.description)
			}
			if embedder.GetDimension() != tt.expectedDim {
				t.Errorf("Expected dimension %d, got %d", tt.expectedDim, embedder.GetDimension())
			}
			if embedder.GetModelName() != tt.model {
				t.Errorf("Expected model %s, got %s", tt.model, embedder.GetModelName())
			}
		})
	}
}

func TestGeminiEmbedder_GenerateEmbedding_TaskTypes(t *testing.T) {
	originalAPIKey := os.Getenv("GEMINI_API_KEY")
	defer os.Setenv("GEMINI_API_KEY", originalAPIKey)
	os.Setenv("GEMINI_API_KEY", "test-api-key")

	var seenTaskTypes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request GeminiEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		seenTaskTypes = append(seenTaskTypes, request.TaskType)

		response := GeminiEmbeddingResponse{}
		response.Embedding.Values = []float32{0.1, 0.2, 0.3}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			t.Errorf("Failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	embedder, err := NewGeminiEmbedderWithClient("text-embedding-004", server.Client(), server.URL)
	if err != nil {
		t.Fatalf("Failed to create embedder: %v", err)
	}

	ctx := context.Background()
	if _, err := embedder.GenerateEmbedding(ctx, "a transcript chunk", interfaces.TaskDocument); err != nil {
		t.Fatalf("Document embedding failed: %v", err)
	}
	if _, err := embedder.GenerateEmbedding(ctx, "a search query", interfaces.TaskQuery); err != nil {
		t.Fatalf("Query embedding failed: %v", err)
	}

	if len(seenTaskTypes) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(seenTaskTypes))
	}
	if seenTaskTypes[0] != "RETRIEVAL_DOCUMENT" {
		t.Errorf("Expected RETRIEVAL_DOCUMENT for index-time embedding, got %s", seenTaskTypes[0])
	}
	if seenTaskTypes[1] != "RETRIEVAL_QUERY" {
		t.Errorf("Expected RETRIEVAL_QUERY for search-time embedding, got %s", seenTaskTypes[1])
	}
}

func TestGeminiEmbedder_GenerateEmbedding_EmptyContent(t *testing.T) {
	originalAPIKey := os.Getenv("GEMINI_API_KEY")
	defer os.Setenv("GEMINI_API_KEY", originalAPIKey)
	os.Setenv("GEMINI_API_KEY", "test-api-key")

	embedder, err := NewGeminiEmbedder("text-embedding-004")
	if err != nil {
		t.Fatalf("Failed to create embedder: %v", err)
	}

	if _, err := embedder.GenerateEmbedding(context.Background(), "", interfaces.TaskDocument); err != ErrContentEmpty {
		t.Errorf("Expected ErrContentEmpty, got %v", err)
	}
}
