package interfaces

import (
	"context"

	"github.com/tubefocus/librarian-go/internal/librarian/models"
)

// TaskType distinguishes document embedding at index time from query
// embedding at search time. Providers that optimize per task receive it
// verbatim; others ignore it.
type TaskType string

const (
	TaskDocument TaskType = "retrieval_document"
	TaskQuery    TaskType = "retrieval_query"
)

// Embedder defines the interface for generating vector embeddings.
type Embedder interface {
	// GenerateEmbedding creates a vector embedding for the given content
	GenerateEmbedding(ctx context.Context, content string, task TaskType) ([]float32, error)

	// GetModelName returns the name of the embedding model
	GetModelName() string

	// GetDimension returns the dimension of the embedding vectors
	GetDimension() int

	// GetMaxTokens returns the maximum number of tokens this embedder can handle
	GetMaxTokens() int
}

// Generator defines the interface for the external text-generation
// provider. It is used only by the chat orchestrator's final step and
// the tier-1 summary side step.
type Generator interface {
	// GenerateText produces prose from a system prompt and messages
	GenerateText(ctx context.Context, systemPrompt string, messages []models.ChatMessage) (string, error)

	// GetModelName returns the name of the generation model
	GetModelName() string
}

// ChunkFilter narrows chunk-store reads and vector searches. Zero-value
// fields are not applied.
type ChunkFilter struct {
	VideoID         string
	OriginalVideoID string
	Tier            int
	Kind            models.ChunkKind
}

// ScoredChunk is a chunk with its cosine distance from a query vector.
type ScoredChunk struct {
	Chunk    *models.Chunk
	Distance float64
}

// ChunkStore defines the document store holding chunk records. It must
// support equality filters, ordering by indexed_at and cosine
// nearest-neighbor search; the retriever degrades to lexical matching
// when vector search is unavailable.
type ChunkStore interface {
	// InsertChunks persists chunk records in bounded sub-batches and
	// returns the number of records stored
	InsertChunks(ctx context.Context, chunks []*models.Chunk) (int, error)

	// GetChunksByOriginalVideoID returns every chunk whose canonical id
	// matches, ordered by tier then chunk index
	GetChunksByOriginalVideoID(ctx context.Context, originalVideoID string) ([]*models.Chunk, error)

	// GetChunkByID returns one chunk record or nil when absent
	GetChunkByID(ctx context.Context, id string) (*models.Chunk, error)

	// ListByKind returns chunks of one kind, newest first
	ListByKind(ctx context.Context, kind models.ChunkKind, limit int) ([]*models.Chunk, error)

	// ListChunks returns up to limit chunk records, newest first
	ListChunks(ctx context.Context, limit int) ([]*models.Chunk, error)

	// VectorSearch returns the chunks nearest to the embedding by cosine
	// distance, optionally filtered
	VectorSearch(ctx context.Context, embedding []float32, limit int, filter ChunkFilter) ([]*ScoredChunk, error)

	// DeleteChunksByVideoID removes every chunk for a canonical video id
	// and returns the number removed
	DeleteChunksByVideoID(ctx context.Context, originalVideoID string) (int, error)

	// Count returns the total number of chunk records
	Count(ctx context.Context) (int, error)
}

// HighlightStore defines the separate collection of user highlights.
type HighlightStore interface {
	// SaveHighlight upserts a highlight and returns its document id
	SaveHighlight(ctx context.Context, highlight *models.Highlight) (string, error)

	// GetHighlightsForVideo returns a video's highlights ordered by timestamp
	GetHighlightsForVideo(ctx context.Context, videoID string) ([]*models.Highlight, error)

	// ListHighlights returns highlights, newest first
	ListHighlights(ctx context.Context, limit int) ([]*models.Highlight, error)

	// DeleteHighlight removes a highlight by document id
	DeleteHighlight(ctx context.Context, id string) error
}
