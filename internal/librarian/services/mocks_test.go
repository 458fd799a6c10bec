package services

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/tubefocus/librarian-go/internal/librarian/interfaces"
	"github.com/tubefocus/librarian-go/internal/librarian/models"
)

// mockEmbedder derives a deterministic bag-of-tokens vector from the
// text, so texts sharing vocabulary land close in cosine space.
type mockEmbedder struct {
	failAll bool
	calls   int
}

func (m *mockEmbedder) GenerateEmbedding(_ context.Context, content string, _ interfaces.TaskType) ([]float32, error) {
	m.calls++
	if m.failAll {
		return nil, errors.New("embedding service unavailable")
	}
	vector := make([]float32, 16)
	for _, token := range tokenize(content) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vector[h.Sum32()%16]++
	}
	return vector, nil
}

func (m *mockEmbedder) GetModelName() string { return "mock-embedder" }
func (m *mockEmbedder) GetDimension() int    { return 16 }
func (m *mockEmbedder) GetMaxTokens() int    { return 8192 }

// mockGenerator records the prompts it receives and returns a canned
// answer.
type mockGenerator struct {
	response     string
	err          error
	calls        int
	lastSystem   string
	lastMessages []models.ChatMessage
}

func (m *mockGenerator) GenerateText(
	_ context.Context,
	systemPrompt string,
	messages []models.ChatMessage,
) (string, error) {
	m.calls++
	m.lastSystem = systemPrompt
	m.lastMessages = messages
	if m.err != nil {
		return "", m.err
	}
	if m.response == "" {
		return "generated answer", nil
	}
	return m.response, nil
}

func (m *mockGenerator) GetModelName() string { return "mock-generator" }
