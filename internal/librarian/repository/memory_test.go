package repository

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/tubefocus/librarian-go/internal/librarian/interfaces"
	"github.com/tubefocus/librarian-go/internal/librarian/models"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{
			name:     "identical vectors",
			a:        []float32{1, 0, 0},
			b:        []float32{1, 0, 0},
			expected: 0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1, 0},
			b:        []float32{0, 1},
			expected: 1,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1, 0},
			b:        []float32{-1, 0},
			expected: 2,
		},
		{
			name:     "mismatched lengths",
			a:        []float32{1, 0},
			b:        []float32{1},
			expected: 1,
		},
		{
			name:     "empty vectors",
			a:        nil,
			b:        nil,
			expected: 1,
		},
		{
			name:     "zero vector",
			a:        []float32{0, 0},
			b:        []float32{1, 0},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineDistance(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("cosineDistance = %v, want %v", got, tt.expected)
			}
		})
	}
}

func makeChunk(id, videoID string, tier, index int, embedding []float32) *models.Chunk {
	return &models.Chunk{
		ID:              id,
		VideoID:         "saved_" + videoID,
		OriginalVideoID: videoID,
		Kind:            models.KindVideoChunk,
		Tier:            tier,
		ChunkIndex:      index,
		Text:            fmt.Sprintf("chunk %s", id),
		Embedding:       embedding,
		IndexedAt:       time.Now(),
	}
}

func TestMemoryChunkStore_InsertAndGet(t *testing.T) {
	store := NewMemoryChunkStore()
	ctx := context.Background()

	chunks := []*models.Chunk{
		makeChunk("c1", "v1", models.TierSegment, 0, []float32{1, 0}),
		makeChunk("c2", "v1", models.TierClip, 0, []float32{0, 1}),
		makeChunk("c3", "v2", models.TierSegment, 0, []float32{1, 1}),
	}
	stored, err := store.InsertChunks(ctx, chunks)
	if err != nil {
		t.Fatalf("InsertChunks failed: %v", err)
	}
	if stored != 3 {
		t.Errorf("Expected 3 stored, got %d", stored)
	}

	got, err := store.GetChunksByOriginalVideoID(ctx, "v1")
	if err != nil {
		t.Fatalf("GetChunksByOriginalVideoID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 chunks for v1, got %d", len(got))
	}
	if got[0].Tier > got[1].Tier {
		t.Error("Chunks should be ordered by tier")
	}

	count, err := store.Count(ctx)
	if err != nil || count != 3 {
		t.Errorf("Count = %d, %v; want 3", count, err)
	}
}

func TestMemoryChunkStore_VectorSearch(t *testing.T) {
	store := NewMemoryChunkStore()
	ctx := context.Background()

	chunks := []*models.Chunk{
		makeChunk("near", "v1", models.TierClip, 0, []float32{1, 0}),
		makeChunk("far", "v1", models.TierClip, 1, []float32{0, 1}),
		makeChunk("other-video", "v2", models.TierClip, 0, []float32{1, 0.1}),
	}
	// A chunk without an embedding must never be a candidate.
	chunks = append(chunks, makeChunk("no-embedding", "v1", models.TierSegment, 1, nil))

	if _, err := store.InsertChunks(ctx, chunks); err != nil {
		t.Fatalf("InsertChunks failed: %v", err)
	}

	results, err := store.VectorSearch(ctx, []float32{1, 0}, 10, interfaces.ChunkFilter{})
	if err != nil {
		t.Fatalf("VectorSearch failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 embedded candidates, got %d", len(results))
	}
	if results[0].Chunk.ID != "near" {
		t.Errorf("Expected nearest chunk first, got %s", results[0].Chunk.ID)
	}

	// Filter by video restricts candidates.
	filtered, err := store.VectorSearch(ctx, []float32{1, 0}, 10, interfaces.ChunkFilter{OriginalVideoID: "v2"})
	if err != nil {
		t.Fatalf("Filtered VectorSearch failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Chunk.ID != "other-video" {
		t.Errorf("Expected only v2's chunk, got %d results", len(filtered))
	}

	// Tier filter.
	tier3, err := store.VectorSearch(ctx, []float32{1, 0}, 10, interfaces.ChunkFilter{Tier: models.TierClip})
	if err != nil {
		t.Fatalf("Tier VectorSearch failed: %v", err)
	}
	for _, r := range tier3 {
		if r.Chunk.Tier != models.TierClip {
			t.Errorf("Tier filter leaked tier %d", r.Chunk.Tier)
		}
	}
}

func TestMemoryChunkStore_Delete(t *testing.T) {
	store := NewMemoryChunkStore()
	ctx := context.Background()

	if _, err := store.InsertChunks(ctx, []*models.Chunk{
		makeChunk("c1", "v1", models.TierSegment, 0, nil),
		makeChunk("c2", "v1", models.TierSegment, 1, nil),
		makeChunk("c3", "v2", models.TierSegment, 0, nil),
	}); err != nil {
		t.Fatalf("InsertChunks failed: %v", err)
	}

	removed, err := store.DeleteChunksByVideoID(ctx, "v1")
	if err != nil {
		t.Fatalf("DeleteChunksByVideoID failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}

	remaining, err := store.GetChunksByOriginalVideoID(ctx, "v2")
	if err != nil || len(remaining) != 1 {
		t.Errorf("Expected v2's chunk to survive, got %d (%v)", len(remaining), err)
	}
}

func TestMemoryHighlightStore(t *testing.T) {
	store := NewMemoryHighlightStore()
	ctx := context.Background()

	// Missing video id is a validation failure.
	if _, err := store.SaveHighlight(ctx, &models.Highlight{}); err == nil {
		t.Error("Expected validation error for missing video id")
	}

	id1, err := store.SaveHighlight(ctx, &models.Highlight{VideoID: "v1", Timestamp: 30, Note: "first"})
	if err != nil {
		t.Fatalf("SaveHighlight failed: %v", err)
	}
	if id1 != "v1_30" {
		t.Errorf("Expected doc id v1_30, got %s", id1)
	}

	if _, err := store.SaveHighlight(ctx, &models.Highlight{VideoID: "v1", Timestamp: 10, Note: "earlier"}); err != nil {
		t.Fatalf("SaveHighlight failed: %v", err)
	}
	if _, err := store.SaveHighlight(ctx, &models.Highlight{VideoID: "v2", Timestamp: 5}); err != nil {
		t.Fatalf("SaveHighlight failed: %v", err)
	}

	// Lookup joins through normalized ids and orders by timestamp.
	forVideo, err := store.GetHighlightsForVideo(ctx, "saved_v1")
	if err != nil {
		t.Fatalf("GetHighlightsForVideo failed: %v", err)
	}
	if len(forVideo) != 2 {
		t.Fatalf("Expected 2 highlights for v1, got %d", len(forVideo))
	}
	if forVideo[0].Timestamp != 10 {
		t.Error("Highlights should be ordered by timestamp")
	}

	if err := store.DeleteHighlight(ctx, id1); err != nil {
		t.Fatalf("DeleteHighlight failed: %v", err)
	}
	forVideo, _ = store.GetHighlightsForVideo(ctx, "v1")
	if len(forVideo) != 1 {
		t.Errorf("Expected 1 highlight after delete, got %d", len(forVideo))
	}
}

func TestMemoryChunkStore_SatisfiesInterface(t *testing.T) {
	var _ interfaces.ChunkStore = NewMemoryChunkStore()
	var _ interfaces.HighlightStore = NewMemoryHighlightStore()
}
